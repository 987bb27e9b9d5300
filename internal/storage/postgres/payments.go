package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Payment fetches a single payment by id.
func (s *Store) Payment(ctx context.Context, paymentID uuid.UUID) (split.Payment, error) {
	var p split.Payment
	var amountMinor int64
	err := s.pool.QueryRow(ctx, `
        select id, group_id, from_user_id, to_user_id, amount_minor, currency, status, date, note, created_at, updated_at
        from payments
        where id = $1
    `, paymentID).Scan(&p.ID, &p.GroupID, &p.FromUserID, &p.ToUserID, &amountMinor, &p.Currency,
		&p.Status, &p.Date, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return split.Payment{}, errs.ErrNotFound
	}
	if err != nil {
		return split.Payment{}, err
	}
	p.Amount, _ = money.NewAmountFromMinorUnits(p.Currency, amountMinor)
	return p, nil
}

// GroupPayments returns all payments of a group in (date, id) order.
func (s *Store) GroupPayments(ctx context.Context, groupID uuid.UUID) ([]split.Payment, error) {
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select id, group_id, from_user_id, to_user_id, amount_minor, currency, status, date, note, created_at, updated_at
        from payments
        where group_id = $1
        order by date asc, id asc
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]split.Payment, 0)
	for rows.Next() {
		var p split.Payment
		var amountMinor int64
		if err := rows.Scan(&p.ID, &p.GroupID, &p.FromUserID, &p.ToUserID, &amountMinor, &p.Currency,
			&p.Status, &p.Date, &p.Note, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Amount, _ = money.NewAmountFromMinorUnits(p.Currency, amountMinor)
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreatePayment inserts the payment and applies any balance deltas in one
// transaction. Deltas are only present for payments created as completed.
func (s *Store) CreatePayment(ctx context.Context, p split.Payment, deltas []split.BalanceDelta) (split.Payment, error) {
	amountMinor, _ := p.Amount.MinorUnits()
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            insert into payments (id, group_id, from_user_id, to_user_id, amount_minor, currency, status, date, note, created_at, updated_at)
            values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        `, p.ID, p.GroupID, p.FromUserID, p.ToUserID, amountMinor, p.Currency, p.Status, p.Date, p.Note, p.CreatedAt, p.UpdatedAt); err != nil {
			return err
		}
		return applyDeltas(ctx, tx, p.GroupID, deltas)
	})
	if err != nil {
		return split.Payment{}, err
	}
	return p, nil
}

// UpdatePayment persists a status change and its balance deltas in one
// transaction.
func (s *Store) UpdatePayment(ctx context.Context, p split.Payment, deltas []split.BalanceDelta) (split.Payment, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
            update payments
            set status = $1, updated_at = $2
            where id = $3 and group_id = $4
        `, p.Status, p.UpdatedAt, p.ID, p.GroupID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return applyDeltas(ctx, tx, p.GroupID, deltas)
	})
	if err != nil {
		return split.Payment{}, err
	}
	return p, nil
}
