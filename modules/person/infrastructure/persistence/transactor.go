package persistence

import (
	"context"

	"github.com/harborworks/crewdb/modules/person/services"
	"github.com/harborworks/crewdb/pkg/composables"
)

type pgTransactor struct{}

// NewTransactor runs functions inside a database transaction carried by
// context.
func NewTransactor() services.Transactor {
	return pgTransactor{}
}

func (pgTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return composables.InTx(ctx, fn)
}
