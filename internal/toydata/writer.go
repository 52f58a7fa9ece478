package toydata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/okian/pitwall/pkg/logger"
)

// WriteOption configures Write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	logger logger.Logger
}

// WithLogger sets the logger that reports written tables.
func WithLogger(l logger.Logger) WriteOption {
	return func(o *writeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Write replaces every dataset table in db, named prefix+table, inside one
// transaction.
func (d *Dataset) Write(ctx context.Context, db *sql.DB, prefix string, opts ...WriteOption) error {
	o := writeOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin toy write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range d.Tables {
		if err := writeTable(ctx, tx, prefix, &d.Tables[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit toy write: %w", err)
	}

	for _, t := range d.Tables {
		o.logger.Info(ctx, "toy table written",
			logger.String("table", prefix+t.Name), logger.Int("rows", len(t.Rows)), logger.Int("columns", len(t.Columns)))
	}
	return nil
}

func writeTable(ctx context.Context, tx *sql.Tx, prefix string, t *Table) error {
	name := `"` + prefix + t.Name + `"`
	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = `"` + c.Name + `"`
		defs[i] = names[i] + " " + c.Type
		marks[i] = "?"
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare %s: %w", name, err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return nil
}
