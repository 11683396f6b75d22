// Package app composes the contracts service from its parts.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct and wiring
//	├── domain/             # Domain models (pure data structures)
//	│   ├── contract/       # Contract entity and lifecycle states
//	│   └── directory/      # External directory entities
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # ContractStore interface
//	│   ├── memory/         # In-memory implementation for tests and dev
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic
//	│   ├── contracts/      # Contract lifecycle service
//	│   └── directory/      # HTTP client for the external directory
//	├── httpapi/            # REST handlers, error mapping, audit trail
//	└── metrics/            # Prometheus collectors
//
// Domain models carry no business logic; lifecycle rules live in
// internal/app/services/contracts. Storage implementations translate their
// backend's absence signal to storage.ErrNotFound so services and handlers
// only deal with one sentinel.
package app
