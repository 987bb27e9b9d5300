package split

import (
	"sort"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/splitkhata/splitkhata/internal/errs"
)

// PercentTotalBps is the required percentage sum for PolicyPercentage,
// expressed in basis points (100.00%).
const PercentTotalBps int64 = 10000

// ShareInput carries one participant's derivation input for ComputeSplits.
// Which field is read depends on the policy: PercentBps for percentage,
// ShareCount for shares, AmountMinor for exact. Equal ignores all three.
type ShareInput struct {
	UserID      uuid.UUID
	PercentBps  int64
	ShareCount  int64
	AmountMinor int64
}

// ComputeSplits derives each participant's owed share of totalMinor under the
// given policy. The sum of the returned split amounts equals totalMinor
// exactly for every accepted input.
//
// Participants are ordered by user id (UUID string ascending) before rounding
// remainders are distributed, so repeated calls are idempotent and the member
// absorbing a leftover minor unit is deterministic.
func ComputeSplits(totalMinor int64, currency string, policy Policy, inputs []ShareInput) ([]Split, error) {
	if len(inputs) == 0 {
		return nil, errs.ErrNoParticipants
	}
	if totalMinor <= 0 {
		return nil, errs.ErrInvalidAmount
	}
	ordered := make([]ShareInput, len(inputs))
	copy(ordered, inputs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].UserID.String() < ordered[j].UserID.String()
	})
	seen := make(map[uuid.UUID]struct{}, len(ordered))
	for _, in := range ordered {
		if in.UserID == uuid.Nil {
			return nil, errs.ErrInvalid
		}
		if _, ok := seen[in.UserID]; ok {
			return nil, errs.ErrDuplicateParticipant
		}
		seen[in.UserID] = struct{}{}
	}

	var amounts []int64
	var err error
	switch policy {
	case PolicyEqual:
		weights := make([]int64, len(ordered))
		for i := range weights {
			weights[i] = 1
		}
		amounts, err = allocate(totalMinor, weights)
	case PolicyPercentage:
		weights := make([]int64, len(ordered))
		var sum int64
		for i, in := range ordered {
			if in.PercentBps < 0 || in.PercentBps > PercentTotalBps {
				return nil, errs.ErrPercentTotal
			}
			weights[i] = in.PercentBps
			sum += in.PercentBps
		}
		if sum != PercentTotalBps {
			return nil, errs.ErrPercentTotal
		}
		amounts, err = allocate(totalMinor, weights)
	case PolicyShares:
		weights := make([]int64, len(ordered))
		var sum int64
		for i, in := range ordered {
			if in.ShareCount < 0 {
				return nil, errs.ErrZeroShares
			}
			weights[i] = in.ShareCount
			sum += in.ShareCount
		}
		if sum <= 0 {
			return nil, errs.ErrZeroShares
		}
		amounts, err = allocate(totalMinor, weights)
	case PolicyExact:
		amounts = make([]int64, len(ordered))
		var sum int64
		for i, in := range ordered {
			if in.AmountMinor < 0 {
				return nil, errs.ErrInvalidAmount
			}
			amounts[i] = in.AmountMinor
			sum += in.AmountMinor
		}
		if sum != totalMinor {
			return nil, errs.ErrExactSumMismatch
		}
	default:
		return nil, errs.ErrInvalid
	}
	if err != nil {
		return nil, err
	}

	out := make([]Split, len(ordered))
	for i, in := range ordered {
		amt, aerr := money.NewAmountFromMinorUnits(currency, amounts[i])
		if aerr != nil {
			return nil, errs.ErrInvalid
		}
		out[i] = Split{
			UserID:     in.UserID,
			Amount:     amt,
			PercentBps: in.PercentBps,
			ShareCount: in.ShareCount,
		}
	}
	return out, nil
}

// allocate divides totalMinor proportionally to weights using integer
// largest-remainder rounding: each slot gets floor(total*w/W), then the
// leftover minor units are handed out one each to the slots with the largest
// truncated remainders, earlier slots winning ties. The results always sum
// to totalMinor.
func allocate(totalMinor int64, weights []int64) ([]int64, error) {
	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	if weightSum <= 0 {
		return nil, errs.ErrZeroShares
	}
	amounts := make([]int64, len(weights))
	rems := make([]int64, len(weights))
	var allocated int64
	for i, w := range weights {
		amounts[i] = totalMinor * w / weightSum
		rems[i] = totalMinor * w % weightSum
		allocated += amounts[i]
	}
	leftover := totalMinor - allocated
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rems[order[a]] > rems[order[b]]
	})
	for i := int64(0); i < leftover; i++ {
		amounts[order[i]]++
	}
	return amounts, nil
}
