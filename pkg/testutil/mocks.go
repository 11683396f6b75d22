// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"sync"

	"github.com/lpichet/contracts-service/internal/app/domain/directory"
	directorysvc "github.com/lpichet/contracts-service/internal/app/services/directory"
)

// FakeDirectory is an in-memory directory.Client for tests. Its validation
// rule mirrors the reference directory: contract values above CreditLimit are
// rejected.
type FakeDirectory struct {
	mu sync.RWMutex

	accounts map[string]directory.Account
	contacts map[string]directory.Contact

	// CreditLimit is the threshold above which validation rejects.
	CreditLimit float64
	// ValidateErr, when set, is returned from ValidateContract.
	ValidateErr error
	// NotifyErr, when set, is returned from NotifySigned.
	NotifyErr error
	// NotifyAck is the acknowledgement NotifySigned reports.
	NotifyAck bool

	notifyCalls int
}

var _ directorysvc.Client = (*FakeDirectory)(nil)

// NewFakeDirectory creates a fake pre-seeded with one account ("acc-1",
// "Acme Corp") and one contact ("con-1", Jane Doe).
func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		accounts: map[string]directory.Account{
			"acc-1": {ID: "acc-1", Name: "Acme Corp", Industry: "Manufacturing"},
		},
		contacts: map[string]directory.Contact{
			"con-1": {ID: "con-1", AccountID: "acc-1", FirstName: "Jane", LastName: "Doe", Email: "jane@acme.example"},
		},
		CreditLimit: 500000,
		NotifyAck:   true,
	}
}

// AddAccount registers an account with the fake.
func (f *FakeDirectory) AddAccount(acct directory.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[acct.ID] = acct
}

// AddContact registers a contact with the fake.
func (f *FakeDirectory) AddContact(cont directory.Contact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts[cont.ID] = cont
}

// NotifyCalls reports how many times NotifySigned was invoked.
func (f *FakeDirectory) NotifyCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.notifyCalls
}

func (f *FakeDirectory) FetchAccount(_ context.Context, id string) (directory.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	acct, ok := f.accounts[id]
	if !ok {
		return directory.Account{}, directorysvc.ErrNotFound
	}
	return acct, nil
}

func (f *FakeDirectory) FetchContact(_ context.Context, id string) (directory.Contact, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cont, ok := f.contacts[id]
	if !ok {
		return directory.Contact{}, directorysvc.ErrNotFound
	}
	return cont, nil
}

func (f *FakeDirectory) FetchContactsForAccount(_ context.Context, accountID string) ([]directory.Contact, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var result []directory.Contact
	for _, c := range f.contacts {
		if c.AccountID == accountID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *FakeDirectory) ValidateContract(_ context.Context, req directory.ValidationRequest) (directory.ValidationResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.ValidateErr != nil {
		return directory.ValidationResult{}, f.ValidateErr
	}
	if req.Value > f.CreditLimit {
		return directory.ValidationResult{
			IsValid:     false,
			Message:     "contract value exceeds account credit limit",
			CreditLimit: f.CreditLimit,
		}, nil
	}
	return directory.ValidationResult{IsValid: true, Message: "approved", ApprovalStatus: "auto"}, nil
}

func (f *FakeDirectory) NotifySigned(_ context.Context, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifyCalls++
	if f.NotifyErr != nil {
		return false, f.NotifyErr
	}
	return f.NotifyAck, nil
}
