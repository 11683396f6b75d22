// Package storage defines the persistence interfaces used by the application
// services.
package storage

import (
	"context"
	"errors"

	"github.com/lpichet/contracts-service/internal/app/domain/contract"
)

// ErrNotFound is returned when a requested record does not exist. Both store
// implementations translate their native missing-row signals to this error so
// callers never depend on driver details.
var ErrNotFound = errors.New("record not found")

// ContractStore persists contract records.
type ContractStore interface {
	CreateContract(ctx context.Context, c contract.Contract) (contract.Contract, error)
	UpdateContract(ctx context.Context, c contract.Contract) (contract.Contract, error)
	GetContract(ctx context.Context, id string) (contract.Contract, error)
	ListContracts(ctx context.Context) ([]contract.Contract, error)
	DeleteContract(ctx context.Context, id string) error
}
