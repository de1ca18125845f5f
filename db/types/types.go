package types

import (
	"context"
	"database/sql"
	"time"

	"go.hackfix.me/awesome/db/migrator"
)

// Querier runs SQL queries, and provides the context and time source used for
// them. It's implemented by *db.DB.
type Querier interface {
	migrator.Execer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	NewContext() context.Context
	TimeNow() time.Time
}

// Filter is a WHERE clause with its positional arguments.
type Filter struct {
	Where string
	Args  []any
}

// NewFilter creates a new query filter.
func NewFilter(where string, args ...any) *Filter {
	return &Filter{Where: where, Args: args}
}
