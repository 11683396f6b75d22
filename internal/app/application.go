// Package app wires the contract service's dependencies together.
package app

import (
	contractssvc "github.com/lpichet/contracts-service/internal/app/services/contracts"
	directorysvc "github.com/lpichet/contracts-service/internal/app/services/directory"
	"github.com/lpichet/contracts-service/internal/app/storage"
	"github.com/lpichet/contracts-service/internal/app/storage/memory"
	"github.com/lpichet/contracts-service/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil store defaults to the
// in-memory implementation.
type Stores struct {
	Contracts storage.ContractStore
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Contracts *contractssvc.Service
}

// New builds a fully initialised application with the provided stores and
// directory client. The directory client is passed explicitly; there is no
// ambient construction from global state.
func New(stores Stores, dir directorysvc.Client, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Contracts == nil {
		stores.Contracts = memory.New()
	}

	return &Application{
		log:       log,
		Contracts: contractssvc.New(stores.Contracts, dir, log),
	}
}
