package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/splitkhata/splitkhata/internal/khata"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Groups

type postGroupRequest struct {
	Name      string            `json:"name"`
	Currency  string            `json:"currency"`
	CreatedBy uuid.UUID         `json:"created_by"`
	MemberIDs []uuid.UUID       `json:"member_ids"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type memberResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type groupResponse struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	Currency  string            `json:"currency"`
	CreatedBy uuid.UUID         `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Members   []memberResponse  `json:"members,omitempty"`
}

// Expenses

type postExpenseShare struct {
	UserID      uuid.UUID `json:"user_id"`
	PercentBps  int64     `json:"percent_bps,omitempty"`
	ShareCount  int64     `json:"share_count,omitempty"`
	AmountMinor int64     `json:"amount_minor,omitempty"`
}

type postExpenseRequest struct {
	GroupID     uuid.UUID          `json:"group_id"`
	Description string             `json:"description"`
	Category    split.Category     `json:"category,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	AmountMinor int64              `json:"amount_minor"`
	PaidBy      uuid.UUID          `json:"paid_by"`
	Policy      split.Policy       `json:"policy"`
	Date        time.Time          `json:"date,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	Shares      []postExpenseShare `json:"shares"`
}

type splitResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	AmountMinor int64     `json:"amount_minor"`
	Amount      string    `json:"amount"`
	PercentBps  int64     `json:"percent_bps,omitempty"`
	ShareCount  int64     `json:"share_count,omitempty"`
}

type expenseResponse struct {
	ID          uuid.UUID         `json:"id"`
	GroupID     uuid.UUID         `json:"group_id"`
	Description string            `json:"description"`
	Category    split.Category    `json:"category"`
	Currency    string            `json:"currency"`
	AmountMinor int64             `json:"amount_minor"`
	Amount      string            `json:"amount"`
	PaidBy      uuid.UUID         `json:"paid_by"`
	Policy      split.Policy      `json:"policy"`
	Date        time.Time         `json:"date"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Splits      []splitResponse   `json:"splits"`
}

type listExpensesResponse struct {
	Items []expenseResponse `json:"items"`
}

// Payments

type postPaymentRequest struct {
	GroupID     uuid.UUID           `json:"group_id"`
	FromUserID  uuid.UUID           `json:"from_user_id"`
	ToUserID    uuid.UUID           `json:"to_user_id"`
	Currency    string              `json:"currency,omitempty"`
	AmountMinor int64               `json:"amount_minor"`
	Status      split.PaymentStatus `json:"status,omitempty"`
	Date        time.Time           `json:"date,omitempty"`
	Note        string              `json:"note,omitempty"`
}

type patchPaymentStatusRequest struct {
	Status split.PaymentStatus `json:"status"`
}

type paymentResponse struct {
	ID          uuid.UUID           `json:"id"`
	GroupID     uuid.UUID           `json:"group_id"`
	FromUserID  uuid.UUID           `json:"from_user_id"`
	ToUserID    uuid.UUID           `json:"to_user_id"`
	AmountMinor int64               `json:"amount_minor"`
	Amount      string              `json:"amount"`
	Currency    string              `json:"currency"`
	Status      split.PaymentStatus `json:"status"`
	Date        time.Time           `json:"date"`
	Note        string              `json:"note,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type listPaymentsResponse struct {
	Items []paymentResponse `json:"items"`
}

// Balances and settlement

type balanceResponse struct {
	GroupID     uuid.UUID `json:"group_id"`
	UserID      uuid.UUID `json:"user_id"`
	AmountMinor int64     `json:"amount_minor"`
}

type groupBalancesResponse struct {
	GroupID  uuid.UUID         `json:"group_id"`
	Balances []balanceResponse `json:"balances"`
}

type transferResponse struct {
	FromUserID  uuid.UUID `json:"from_user_id"`
	ToUserID    uuid.UUID `json:"to_user_id"`
	AmountMinor int64     `json:"amount_minor"`
}

type settlementResponse struct {
	GroupID   uuid.UUID          `json:"group_id"`
	Transfers []transferResponse `json:"transfers"`
}

type userBalanceResponse struct {
	UserID     uuid.UUID         `json:"user_id"`
	TotalMinor int64             `json:"total_minor"`
	Balances   []balanceResponse `json:"balances"`
}

// listByGroupQuery holds the validated group filter for list endpoints.
type listByGroupQuery struct {
	GroupID uuid.UUID
}

// Khata

type postKhataCustomerRequest struct {
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone,omitempty"`
}

type khataCustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type postKhataTxRequest struct {
	CustomerID  uuid.UUID         `json:"customer_id"`
	Type        khata.EntryType   `json:"type"`
	Currency    string            `json:"currency,omitempty"`
	AmountMinor int64             `json:"amount_minor"`
	Date        time.Time         `json:"date,omitempty"`
	Note        string            `json:"note,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type khataTxResponse struct {
	ID           uuid.UUID         `json:"id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	Type         khata.EntryType   `json:"type"`
	Currency     string            `json:"currency"`
	AmountMinor  int64             `json:"amount_minor"`
	Amount       string            `json:"amount"`
	Date         time.Time         `json:"date"`
	RunningMinor int64             `json:"running_minor"`
	Note         string            `json:"note,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type listKhataTxResponse struct {
	Items []khataTxResponse `json:"items"`
}
