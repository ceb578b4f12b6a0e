// Package repo holds one file per entity family, the only sanctioned writers
// of persisted state (SPEC_FULL.md section 5/4.8). Every repository method
// re-parses stored JSON columns back through the entity struct before
// returning, and multi-row mutations run inside WithTx so a handler never
// leaves partial state observable.
package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic. Grounded on the teacher's "handlers don't
// issue raw writes, repositories do" convention, generalized to the
// transactional-closure requirement in SPEC_FULL.md section 6.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
