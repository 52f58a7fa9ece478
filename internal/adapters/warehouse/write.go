package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/pkg/logger"
)

// WriteFeatures replaces table name with the rows of t, in one transaction.
func (w *Warehouse) WriteFeatures(ctx context.Context, name string, t *features.Table) error {
	cols := features.Columns()
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
		defs[i] = names[i] + " " + w.dialect.types[c.Type]
		if !c.Nullable {
			defs[i] += " NOT NULL"
		}
	}
	table := quoteIdent(name)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin feature write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for i := range t.Rows {
		if _, err := stmt.ExecContext(ctx, t.Rows[i].Values()...); err != nil {
			return fmt.Errorf("insert result %d into %s: %w", t.Rows[i].ResultID, name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}

	w.logger.Info(ctx, "feature table written",
		logger.String("table", name), logger.Int("rows", t.Len()), logger.Int("columns", len(cols)))
	return nil
}
