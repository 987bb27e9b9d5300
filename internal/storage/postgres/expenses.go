package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/splitkhata/splitkhata/internal/errs"
	"github.com/splitkhata/splitkhata/internal/split"
)

// Expense fetches a single expense with its splits.
func (s *Store) Expense(ctx context.Context, groupID, expenseID uuid.UUID) (split.Expense, error) {
	var e split.Expense
	var mdBytes []byte
	var amountMinor int64
	err := s.pool.QueryRow(ctx, `
        select id, group_id, description, category, currency, amount_minor, paid_by, policy, date, created_at, updated_at, metadata
        from expenses
        where id = $1 and group_id = $2
    `, expenseID, groupID).Scan(&e.ID, &e.GroupID, &e.Description, &e.Category, &e.Currency, &amountMinor,
		&e.PaidBy, &e.Policy, &e.Date, &e.CreatedAt, &e.UpdatedAt, &mdBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return split.Expense{}, errs.ErrNotFound
	}
	if err != nil {
		return split.Expense{}, err
	}
	e.Amount, _ = money.NewAmountFromMinorUnits(e.Currency, amountMinor)
	e.Metadata = unmarshalMeta(mdBytes)
	splits, err := s.expenseSplits(ctx, e.Currency, []uuid.UUID{e.ID})
	if err != nil {
		return split.Expense{}, err
	}
	e.Splits = splits[e.ID]
	return e, nil
}

// GroupExpenses returns all expenses of a group in (date, id) order with
// splits populated.
func (s *Store) GroupExpenses(ctx context.Context, groupID uuid.UUID) ([]split.Expense, error) {
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select id, group_id, description, category, currency, amount_minor, paid_by, policy, date, created_at, updated_at, metadata
        from expenses
        where group_id = $1
        order by date asc, id asc
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]split.Expense, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var e split.Expense
		var mdBytes []byte
		var amountMinor int64
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.Category, &e.Currency, &amountMinor,
			&e.PaidBy, &e.Policy, &e.Date, &e.CreatedAt, &e.UpdatedAt, &mdBytes); err != nil {
			return nil, err
		}
		e.Amount, _ = money.NewAmountFromMinorUnits(e.Currency, amountMinor)
		e.Metadata = unmarshalMeta(mdBytes)
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	byExpense, err := s.expenseSplits(ctx, out[0].Currency, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Splits = byExpense[out[i].ID]
	}
	return out, nil
}

func (s *Store) expenseSplits(ctx context.Context, currency string, expenseIDs []uuid.UUID) (map[uuid.UUID][]split.Split, error) {
	rows, err := s.pool.Query(ctx, `
        select id, expense_id, user_id, amount_minor, percent_bps, share_count
        from expense_splits
        where expense_id = any($1)
        order by user_id asc
    `, expenseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]split.Split, len(expenseIDs))
	for rows.Next() {
		var sp split.Split
		var amountMinor int64
		if err := rows.Scan(&sp.ID, &sp.ExpenseID, &sp.UserID, &amountMinor, &sp.PercentBps, &sp.ShareCount); err != nil {
			return nil, err
		}
		sp.Amount, _ = money.NewAmountFromMinorUnits(currency, amountMinor)
		out[sp.ExpenseID] = append(out[sp.ExpenseID], sp)
	}
	return out, rows.Err()
}

// CreateExpense inserts the expense, its splits and the balance deltas in one
// transaction.
func (s *Store) CreateExpense(ctx context.Context, e split.Expense, deltas []split.BalanceDelta) (split.Expense, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertExpense(ctx, tx, e); err != nil {
			return err
		}
		return applyDeltas(ctx, tx, e.GroupID, deltas)
	})
	if err != nil {
		return split.Expense{}, err
	}
	return e, nil
}

// UpdateExpense replaces the expense row and its splits and applies the merged
// reverse-and-reapply deltas, all in one transaction.
func (s *Store) UpdateExpense(ctx context.Context, e split.Expense, deltas []split.BalanceDelta) (split.Expense, error) {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `delete from expenses where id = $1 and group_id = $2`, e.ID, e.GroupID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		if err := insertExpense(ctx, tx, e); err != nil {
			return err
		}
		return applyDeltas(ctx, tx, e.GroupID, deltas)
	})
	if err != nil {
		return split.Expense{}, err
	}
	return e, nil
}

// DeleteExpense removes the expense and reverses its balance effect in one
// transaction.
func (s *Store) DeleteExpense(ctx context.Context, groupID, expenseID uuid.UUID, deltas []split.BalanceDelta) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `delete from expenses where id = $1 and group_id = $2`, expenseID, groupID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return applyDeltas(ctx, tx, groupID, deltas)
	})
}

func insertExpense(ctx context.Context, tx pgx.Tx, e split.Expense) error {
	md, _ := e.Metadata.MarshalStableJSON()
	amountMinor, _ := e.Amount.MinorUnits()
	if _, err := tx.Exec(ctx, `
        insert into expenses (id, group_id, description, category, currency, amount_minor, paid_by, policy, date, created_at, updated_at, metadata)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    `, e.ID, e.GroupID, e.Description, e.Category, e.Currency, amountMinor, e.PaidBy, e.Policy, e.Date, e.CreatedAt, e.UpdatedAt, md); err != nil {
		return err
	}
	for _, sp := range e.Splits {
		spMinor, _ := sp.Amount.MinorUnits()
		if _, err := tx.Exec(ctx, `
            insert into expense_splits (id, expense_id, user_id, amount_minor, percent_bps, share_count)
            values ($1,$2,$3,$4,$5,$6)
        `, sp.ID, e.ID, sp.UserID, spMinor, sp.PercentBps, sp.ShareCount); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}
	return nil
}

// inTx runs fn in a transaction and maps write errors for the service retry
// path.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return mapWriteErr(err)
	}
	return mapWriteErr(tx.Commit(ctx))
}
