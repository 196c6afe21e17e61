package services

import (
	"context"
)

// Transactor runs fn atomically: either every repository write made
// inside fn is visible afterwards, or none is.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
