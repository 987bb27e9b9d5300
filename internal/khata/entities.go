// Package khata models the per-contact giver/receiver ledger. It is
// independent of group expense splitting: each customer has an ordered
// transaction sequence and every transaction stores the running balance of
// the sequence up to and including itself.
package khata

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/splitkhata/splitkhata/internal/meta"
)

// EntryType marks the direction of a khata transaction from the ledger
// owner's point of view.
type EntryType string

const (
	// EntryGive records money handed to the customer; it raises the owner's
	// receivable (running balance moves up).
	EntryGive EntryType = "give"
	// EntryGet records money received from the customer; it lowers the
	// owner's receivable (running balance moves down).
	EntryGet EntryType = "get"
)

// Customer is a contact owned by one app user.
type Customer struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Transaction is one dated entry against a customer. RunningMinor must equal
// the cumulative signed sum of all of the customer's transactions up to and
// including this one, ordered by (Date, ID). Chronological order, not
// creation order.
type Transaction struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	Type         EntryType
	Amount       money.Amount
	Date         time.Time
	RunningMinor int64
	Note         string
	Metadata     meta.Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SignedMinor returns the transaction's contribution to the running balance:
// positive for give, negative for get.
func (t Transaction) SignedMinor() int64 {
	units, _ := t.Amount.MinorUnits()
	if t.Type == EntryGet {
		return -units
	}
	return units
}

// SortChronological orders transactions by (Date, ID) ascending in place.
// The ID tie-break keeps same-day sequences stable.
func SortChronological(txns []Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID.String() < txns[j].ID.String()
	})
}

// Recompute walks the chronologically sorted sequence and rewrites running
// balances from the first transaction dated at or after from. It returns the
// transactions whose stored running balance changed; earlier entries are
// untouched. txns must already be sorted by SortChronological.
func Recompute(txns []Transaction, from time.Time) []Transaction {
	start := 0
	for start < len(txns) && txns[start].Date.Before(from) {
		start++
	}
	var running int64
	if start > 0 {
		running = txns[start-1].RunningMinor
	}
	changed := make([]Transaction, 0, len(txns)-start)
	for i := start; i < len(txns); i++ {
		running += txns[i].SignedMinor()
		if txns[i].RunningMinor != running {
			txns[i].RunningMinor = running
			changed = append(changed, txns[i])
		}
	}
	return changed
}
