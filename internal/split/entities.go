package split

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/splitkhata/splitkhata/internal/meta"
)

// Policy selects how an expense total is divided across participants.
type Policy string

const (
	// PolicyEqual divides the total evenly, leftover minor units going to the
	// first participants in user-id order.
	PolicyEqual Policy = "equal"
	// PolicyPercentage divides the total by per-participant percentages.
	PolicyPercentage Policy = "percentage"
	// PolicyShares divides the total proportionally to integer share counts.
	PolicyShares Policy = "shares"
	// PolicyExact takes caller-supplied amounts and only checks they sum to the total.
	PolicyExact Policy = "exact"
)

// PaymentStatus enumerates the settlement payment lifecycle.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Category identifies the spending bucket of an expense.
type Category string

const (
	CategoryUncategorized Category = "uncategorized"
	CategoryGeneral       Category = "general"
	CategoryEatingOut     Category = "eating_out"
	CategoryGroceries     Category = "groceries"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryBills         Category = "bills"
	CategoryRent          Category = "rent"
	CategoryTravel        Category = "travel"
	CategoryOther         Category = "other"
)

// User captures the owner of group and khata data.
type User struct {
	ID    uuid.UUID
	Email *string
}

// Group is a set of users who share expenses in a single currency.
type Group struct {
	ID   uuid.UUID
	Name string
	// Slug is a lowercase identifier derived from the name, unique per creator.
	Slug      string
	Currency  string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	Metadata  meta.Metadata
}

// Member links a user to a group.
type Member struct {
	GroupID  uuid.UUID
	UserID   uuid.UUID
	JoinedAt time.Time
}

// Expense is a shared cost paid by one member and split across participants.
type Expense struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	Description string
	Category    Category
	Currency    string
	Amount      money.Amount
	PaidBy      uuid.UUID
	Policy      Policy
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Metadata    meta.Metadata
	Splits      []Split
}

// Split is one participant's share of one expense. PercentBps and ShareCount
// record the derivation input for the policy that produced the amount; they
// are not re-validated at read time.
type Split struct {
	ID         uuid.UUID
	ExpenseID  uuid.UUID
	UserID     uuid.UUID
	Amount     money.Amount
	PercentBps int64
	ShareCount int64
}

// Payment is a settlement transfer between two group members. Only completed
// payments affect balances.
type Payment struct {
	ID         uuid.UUID
	GroupID    uuid.UUID
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Amount     money.Amount
	Currency   string
	Status     PaymentStatus
	Date       time.Time
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Balance is the signed net position of one user within one group, in minor
// units. Positive means the user is owed; negative means the user owes.
// Within a group the balances always sum to exactly zero.
type Balance struct {
	GroupID     uuid.UUID
	UserID      uuid.UUID
	AmountMinor int64
}

// BalanceDelta is a signed adjustment to one member's balance. All deltas of
// one logical mutation are applied atomically by storage.
type BalanceDelta struct {
	UserID      uuid.UUID
	AmountMinor int64
}

// NetBalance is the simplifier's view of one member's position.
type NetBalance struct {
	UserID      uuid.UUID
	AmountMinor int64
}

// Transfer is one settling payment suggested by the debt simplifier.
type Transfer struct {
	FromUserID  uuid.UUID
	ToUserID    uuid.UUID
	AmountMinor int64
}

// ValidStatusChange reports whether a payment may move from to the given
// status. pending may complete or cancel; completed may only cancel.
func ValidStatusChange(from, to PaymentStatus) bool {
	switch from {
	case PaymentPending:
		return to == PaymentCompleted || to == PaymentCancelled
	case PaymentCompleted:
		return to == PaymentCancelled
	default:
		return false
	}
}
