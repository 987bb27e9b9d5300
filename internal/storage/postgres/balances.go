package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/splitkhata/splitkhata/internal/split"
)

// GroupBalances returns the non-zero balances of a group ordered by user id.
func (s *Store) GroupBalances(ctx context.Context, groupID uuid.UUID) ([]split.Balance, error) {
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
        select group_id, user_id, amount_minor
        from balances
        where group_id = $1
        order by user_id asc
    `, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBalances(rows)
}

// BalancesByUser returns the user's non-zero balance in every group they
// appear in.
func (s *Store) BalancesByUser(ctx context.Context, userID uuid.UUID) ([]split.Balance, error) {
	rows, err := s.pool.Query(ctx, `
        select group_id, user_id, amount_minor
        from balances
        where user_id = $1
        order by group_id asc
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBalances(rows)
}

// ReplaceGroupBalances overwrites a group's stored balances in one
// transaction; used by the auditor's repair path.
func (s *Store) ReplaceGroupBalances(ctx context.Context, groupID uuid.UUID, balances []split.Balance) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `delete from balances where group_id = $1`, groupID); err != nil {
			return err
		}
		for _, b := range balances {
			if b.AmountMinor == 0 {
				continue
			}
			if _, err := tx.Exec(ctx, `
                insert into balances (group_id, user_id, amount_minor)
                values ($1,$2,$3)
            `, groupID, b.UserID, b.AmountMinor); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyDeltas folds a mutation's balance deltas into the group's rows. The
// upsert locks each touched row, so concurrent mutations against the same
// group serialize here.
func applyDeltas(ctx context.Context, tx pgx.Tx, groupID uuid.UUID, deltas []split.BalanceDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	for _, d := range deltas {
		if _, err := tx.Exec(ctx, `
            insert into balances (group_id, user_id, amount_minor)
            values ($1,$2,$3)
            on conflict (group_id, user_id) do update
            set amount_minor = balances.amount_minor + excluded.amount_minor
        `, groupID, d.UserID, d.AmountMinor); err != nil {
			return err
		}
	}
	_, err := tx.Exec(ctx, `delete from balances where group_id = $1 and amount_minor = 0`, groupID)
	return err
}

func scanBalances(rows pgx.Rows) ([]split.Balance, error) {
	out := make([]split.Balance, 0)
	for rows.Next() {
		var b split.Balance
		if err := rows.Scan(&b.GroupID, &b.UserID, &b.AmountMinor); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
