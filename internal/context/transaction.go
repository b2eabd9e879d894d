// Package context carries the open history transaction through a request.
package context

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const TRANSACTION_KEY contextKey = "transaction"

func GetTransaction(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(TRANSACTION_KEY).(*gorm.DB)
	return tx, ok && tx != nil
}

func WithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TRANSACTION_KEY, tx)
}
