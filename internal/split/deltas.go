package split

import (
	"sort"

	"github.com/google/uuid"
)

// ExpenseDeltas returns the balance effect of an expense: the payer is
// credited the full total and every split participant is debited their share,
// the payer included when they participate. Keeping this as the single rule
// avoids double-counting the payer's own share.
func ExpenseDeltas(e Expense) []BalanceDelta {
	total, _ := e.Amount.MinorUnits()
	acc := map[uuid.UUID]int64{e.PaidBy: total}
	for _, s := range e.Splits {
		share, _ := s.Amount.MinorUnits()
		acc[s.UserID] -= share
	}
	return flatten(acc)
}

// PaymentDeltas returns the balance effect of a completed payment: the payer
// moves toward zero (their debt shrinks) and the payee's credit shrinks by
// the same amount.
func PaymentDeltas(p Payment) []BalanceDelta {
	amount, _ := p.Amount.MinorUnits()
	return flatten(map[uuid.UUID]int64{
		p.FromUserID: amount,
		p.ToUserID:   -amount,
	})
}

// Reverse negates a delta set, undoing the mutation it was derived from.
func Reverse(deltas []BalanceDelta) []BalanceDelta {
	out := make([]BalanceDelta, len(deltas))
	for i, d := range deltas {
		out[i] = BalanceDelta{UserID: d.UserID, AmountMinor: -d.AmountMinor}
	}
	return out
}

// MergeDeltas combines delta sets per user so one storage write can apply a
// reverse-and-reapply edit as a single atomic adjustment.
func MergeDeltas(sets ...[]BalanceDelta) []BalanceDelta {
	acc := make(map[uuid.UUID]int64)
	for _, set := range sets {
		for _, d := range set {
			acc[d.UserID] += d.AmountMinor
		}
	}
	return flatten(acc)
}

// flatten converts the accumulator map to a slice ordered by user id,
// dropping zero entries.
func flatten(acc map[uuid.UUID]int64) []BalanceDelta {
	out := make([]BalanceDelta, 0, len(acc))
	for id, v := range acc {
		if v == 0 {
			continue
		}
		out = append(out, BalanceDelta{UserID: id, AmountMinor: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}
