package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/khata"
)

// Customer fetches a single khata customer by id.
func (s *Store) Customer(ctx context.Context, customerID uuid.UUID) (khata.Customer, error) {
	var c khata.Customer
	err := s.pool.QueryRow(ctx, `
        select id, owner_id, name, phone, created_at
        from khata_customers
        where id = $1
    `, customerID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return khata.Customer{}, errs.ErrNotFound
	}
	if err != nil {
		return khata.Customer{}, err
	}
	return c, nil
}

// CustomersByOwner returns all khata customers of a user.
func (s *Store) CustomersByOwner(ctx context.Context, ownerID uuid.UUID) ([]khata.Customer, error) {
	rows, err := s.pool.Query(ctx, `
        select id, owner_id, name, phone, created_at
        from khata_customers
        where owner_id = $1
        order by created_at asc, id asc
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]khata.Customer, 0)
	for rows.Next() {
		var c khata.Customer
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CustomerTransactions returns a customer's transactions in chronological
// (date, id) order.
func (s *Store) CustomerTransactions(ctx context.Context, customerID uuid.UUID) ([]khata.Transaction, error) {
	if _, err := s.Customer(ctx, customerID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select id, customer_id, type, currency, amount_minor, date, running_minor, note, metadata, created_at, updated_at
        from khata_transactions
        where customer_id = $1
        order by date asc, id asc
    `, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]khata.Transaction, 0)
	for rows.Next() {
		var t khata.Transaction
		var currency string
		var amountMinor int64
		var mdBytes []byte
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Type, &currency, &amountMinor, &t.Date,
			&t.RunningMinor, &t.Note, &mdBytes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Amount, _ = money.NewAmountFromMinorUnits(currency, amountMinor)
		t.Metadata = unmarshalMeta(mdBytes)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateCustomer inserts a khata customer row.
func (s *Store) CreateCustomer(ctx context.Context, c khata.Customer) (khata.Customer, error) {
	_, err := s.pool.Exec(ctx, `
        insert into khata_customers (id, owner_id, name, phone, created_at)
        values ($1,$2,$3,$4,$5)
    `, c.ID, c.OwnerID, c.Name, c.Phone, c.CreatedAt)
	if err != nil {
		return khata.Customer{}, mapWriteErr(err)
	}
	return c, nil
}

// SaveTransactions applies a mutation's upserts and deletions for one
// customer in one transaction, keeping the running balance chain consistent.
func (s *Store) SaveTransactions(ctx context.Context, customerID uuid.UUID, upserts []khata.Transaction, deleteIDs []uuid.UUID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, id := range deleteIDs {
			if _, err := tx.Exec(ctx, `
                delete from khata_transactions where id = $1 and customer_id = $2
            `, id, customerID); err != nil {
				return err
			}
		}
		for _, t := range upserts {
			md, _ := t.Metadata.MarshalStableJSON()
			amountMinor, _ := t.Amount.MinorUnits()
			if _, err := tx.Exec(ctx, `
                insert into khata_transactions (id, customer_id, type, currency, amount_minor, date, running_minor, note, metadata, created_at, updated_at)
                values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
                on conflict (id) do update
                set type = excluded.type,
                    currency = excluded.currency,
                    amount_minor = excluded.amount_minor,
                    date = excluded.date,
                    running_minor = excluded.running_minor,
                    note = excluded.note,
                    metadata = excluded.metadata,
                    updated_at = excluded.updated_at
            `, t.ID, customerID, t.Type, t.Amount.Curr().Code(), amountMinor, t.Date, t.RunningMinor, t.Note, md, t.CreatedAt, t.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}
