// Package contracts implements the contract lifecycle service: creation
// against the external directory, validation, signing, and the state machine
// that guards edits and deletion.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lpichet/contracts-service/internal/app/domain/contract"
	"github.com/lpichet/contracts-service/internal/app/domain/directory"
	"github.com/lpichet/contracts-service/internal/app/metrics"
	directorysvc "github.com/lpichet/contracts-service/internal/app/services/directory"
	"github.com/lpichet/contracts-service/internal/app/storage"
	"github.com/lpichet/contracts-service/pkg/logger"
)

// ErrInvalidState is returned when an operation violates the contract
// lifecycle, such as editing a signed contract or signing an unvalidated one.
var ErrInvalidState = errors.New("operation not allowed in current contract state")

// ErrReferenceNotFound is returned when creation references a directory
// account or contact that does not exist.
var ErrReferenceNotFound = errors.New("referenced directory entity not found")

// ErrInvalidInput is returned when caller-supplied fields fail validation.
var ErrInvalidInput = errors.New("invalid contract input")

// CreateInput carries the caller-supplied fields for a new contract.
type CreateInput struct {
	Title             string
	Description       string
	Value             float64
	ContractType      string
	ExternalAccountID string
	ExternalContactID string
}

// UpdateInput carries the mutable fields of a contract.
type UpdateInput struct {
	Title        string
	Description  string
	Value        float64
	ContractType string
}

// Service orchestrates the contract store and the directory client.
type Service struct {
	store     storage.ContractStore
	directory directorysvc.Client
	log       *logger.Logger
}

// New constructs a contract lifecycle service.
func New(store storage.ContractStore, dir directorysvc.Client, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("contracts")
	}
	return &Service{
		store:     store,
		directory: dir,
		log:       log,
	}
}

// Create fetches the referenced account and contact from the directory, then
// persists a new draft contract with the directory names denormalized onto
// it. Nothing is persisted when either reference is absent.
func (s *Service) Create(ctx context.Context, in CreateInput) (contract.Contract, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.ExternalAccountID = strings.TrimSpace(in.ExternalAccountID)
	in.ExternalContactID = strings.TrimSpace(in.ExternalContactID)

	if in.Title == "" {
		return contract.Contract{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.ExternalAccountID == "" || in.ExternalContactID == "" {
		return contract.Contract{}, fmt.Errorf("%w: external_account_id and external_contact_id are required", ErrInvalidInput)
	}
	if in.Value < 0 {
		return contract.Contract{}, fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	}

	acct, err := s.directory.FetchAccount(ctx, in.ExternalAccountID)
	if err != nil {
		if errors.Is(err, directorysvc.ErrNotFound) {
			return contract.Contract{}, fmt.Errorf("%w: account %s", ErrReferenceNotFound, in.ExternalAccountID)
		}
		return contract.Contract{}, err
	}

	cont, err := s.directory.FetchContact(ctx, in.ExternalContactID)
	if err != nil {
		if errors.Is(err, directorysvc.ErrNotFound) {
			return contract.Contract{}, fmt.Errorf("%w: contact %s", ErrReferenceNotFound, in.ExternalContactID)
		}
		return contract.Contract{}, err
	}

	c := contract.Contract{
		Title:             in.Title,
		Description:       in.Description,
		ContractType:      in.ContractType,
		Value:             in.Value,
		Status:            contract.StatusDraft,
		ExternalAccountID: in.ExternalAccountID,
		ExternalContactID: in.ExternalContactID,
		AccountName:       acct.Name,
		ContactName:       cont.FullName(),
		ContactEmail:      cont.Email,
	}

	c, err = s.store.CreateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}

	metrics.RecordLifecycleTransition("create", string(c.Status))
	s.log.WithField("contract_id", c.ID).
		WithField("account_id", c.ExternalAccountID).
		Info("contract created")
	return c, nil
}

// Get retrieves a single contract.
func (s *Service) Get(ctx context.Context, id string) (contract.Contract, error) {
	return s.store.GetContract(ctx, id)
}

// List returns all contracts, newest first.
func (s *Service) List(ctx context.Context) ([]contract.Contract, error) {
	return s.store.ListContracts(ctx)
}

// Update overwrites the mutable fields. Editing a validated contract resets
// it to draft and discards the prior validation outcome; signed contracts
// cannot change.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (contract.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return contract.Contract{}, err
	}
	if !c.Editable() {
		return contract.Contract{}, fmt.Errorf("%w: contract %s is signed", ErrInvalidState, id)
	}
	if in.Value < 0 {
		return contract.Contract{}, fmt.Errorf("%w: value must not be negative", ErrInvalidInput)
	}

	c.Title = in.Title
	c.Description = in.Description
	c.Value = in.Value
	c.ContractType = in.ContractType
	if c.Status == contract.StatusValidated {
		c.ResetValidation()
	}

	c, err = s.store.UpdateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}

	metrics.RecordLifecycleTransition("update", string(c.Status))
	s.log.WithField("contract_id", c.ID).Info("contract updated")
	return c, nil
}

// Delete removes a contract. Signed contracts cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return err
	}
	if !c.Editable() {
		return fmt.Errorf("%w: contract %s is signed", ErrInvalidState, id)
	}

	if err := s.store.DeleteContract(ctx, id); err != nil {
		return err
	}

	metrics.RecordLifecycleTransition("delete", "deleted")
	s.log.WithField("contract_id", id).Info("contract deleted")
	return nil
}

// Validate submits the contract to the directory for validation. The pending
// state is persisted before the outbound call; a transport failure leaves the
// contract in pending_validation with no compensating rollback.
func (s *Service) Validate(ctx context.Context, id string) (contract.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return contract.Contract{}, err
	}
	if !c.CanValidate() {
		return contract.Contract{}, fmt.Errorf("%w: contract %s is %s", ErrInvalidState, id, c.Status)
	}

	c.Status = contract.StatusPendingValidation
	c, err = s.store.UpdateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}

	result, err := s.directory.ValidateContract(ctx, directory.ValidationRequest{
		AccountID:    c.ExternalAccountID,
		ContactID:    c.ExternalContactID,
		Value:        c.Value,
		ContractType: c.ContractType,
	})
	if err != nil {
		return contract.Contract{}, err
	}

	isValid := result.IsValid
	message := result.Message
	c.IsValidated = &isValid
	c.ValidationMessage = &message
	if result.IsValid {
		c.Status = contract.StatusValidated
	} else {
		c.Status = contract.StatusRejected
	}

	c, err = s.store.UpdateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}

	metrics.RecordLifecycleTransition("validate", string(c.Status))
	s.log.WithField("contract_id", c.ID).
		WithField("status", string(c.Status)).
		Info("contract validation completed")
	return c, nil
}

// Sign marks a validated contract as signed and notifies the directory. A
// negative notification acknowledgement is logged but never blocks signing;
// only a connection-level failure during notification propagates.
func (s *Service) Sign(ctx context.Context, id, signedBy string) (contract.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return contract.Contract{}, err
	}
	if !c.CanSign() {
		return contract.Contract{}, fmt.Errorf("%w: contract %s is %s, expected %s",
			ErrInvalidState, id, c.Status, contract.StatusValidated)
	}

	c.Status = contract.StatusPendingSignature
	c, err = s.store.UpdateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}

	acknowledged, err := s.directory.NotifySigned(ctx, c.ExternalAccountID, c.ID)
	if err != nil {
		return contract.Contract{}, err
	}
	if !acknowledged {
		s.log.WithField("contract_id", c.ID).Warn("directory did not acknowledge sign notification")
	}

	now := time.Now().UTC()
	c.Status = contract.StatusSigned
	c.SignedAt = &now
	c.SignedBy = &signedBy

	c, err = s.store.UpdateContract(ctx, c)
	if err != nil {
		return contract.Contract{}, err
	}

	metrics.RecordLifecycleTransition("sign", string(c.Status))
	s.log.WithField("contract_id", c.ID).
		WithField("signed_by", signedBy).
		Info("contract signed")
	return c, nil
}

// ListAccountContacts proxies the directory's contact listing for an account.
func (s *Service) ListAccountContacts(ctx context.Context, accountID string) ([]directory.Contact, error) {
	if _, err := s.directory.FetchAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.directory.FetchContactsForAccount(ctx, accountID)
}
