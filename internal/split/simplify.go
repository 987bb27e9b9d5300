package split

import (
	"github.com/splitkhata/splitkhata/internal/errs"
)

// Simplify reduces a zero-sum set of net balances to a short list of settling
// transfers. Each round matches the largest remaining creditor with the
// largest remaining debtor (ties broken by user id ascending) and emits a
// transfer of the smaller magnitude, so no member ever pays or receives more
// than their own net position and at most n-1 transfers are produced for n
// members with non-zero balances.
//
// A balance list that does not sum to zero indicates upstream corruption and
// is rejected with ErrUnbalancedGroup rather than papered over.
func Simplify(balances []NetBalance) ([]Transfer, error) {
	var sum int64
	remaining := make([]NetBalance, 0, len(balances))
	for _, b := range balances {
		sum += b.AmountMinor
		if b.AmountMinor != 0 {
			remaining = append(remaining, b)
		}
	}
	if sum != 0 {
		return nil, errs.ErrUnbalancedGroup
	}

	transfers := make([]Transfer, 0, len(remaining))
	for {
		ci, di := -1, -1
		for i, b := range remaining {
			switch {
			case b.AmountMinor > 0:
				if ci < 0 || larger(b, remaining[ci]) {
					ci = i
				}
			case b.AmountMinor < 0:
				if di < 0 || larger(b, remaining[di]) {
					di = i
				}
			}
		}
		if ci < 0 || di < 0 {
			break
		}
		credit := remaining[ci].AmountMinor
		debt := -remaining[di].AmountMinor
		amount := credit
		if debt < amount {
			amount = debt
		}
		transfers = append(transfers, Transfer{
			FromUserID:  remaining[di].UserID,
			ToUserID:    remaining[ci].UserID,
			AmountMinor: amount,
		})
		remaining[ci].AmountMinor -= amount
		remaining[di].AmountMinor += amount
	}
	return transfers, nil
}

// larger reports whether a outranks b for greedy selection: bigger magnitude
// first, user id ascending on ties.
func larger(a, b NetBalance) bool {
	am, bm := abs64(a.AmountMinor), abs64(b.AmountMinor)
	if am != bm {
		return am > bm
	}
	return a.UserID.String() < b.UserID.String()
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
