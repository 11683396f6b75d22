// Package contract defines the contract entity and its lifecycle states.
package contract

import "time"

// Status is the lifecycle state of a contract.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingValidation Status = "pending_validation"
	StatusValidated         Status = "validated"
	StatusPendingSignature  Status = "pending_signature"
	StatusSigned            Status = "signed"
	StatusRejected          Status = "rejected"
	// StatusCancelled is reserved: it is part of the model but no operation
	// currently sets it.
	StatusCancelled Status = "cancelled"
)

// Contract is a negotiated agreement referencing an account and a contact in
// the external directory. The directory names are captured once at creation
// and never refreshed.
type Contract struct {
	ID                string
	Title             string
	Description       string
	ContractType      string
	Value             float64
	Status            Status
	ExternalAccountID string
	ExternalContactID string
	AccountName       string
	ContactName       string
	ContactEmail      string
	IsValidated       *bool
	ValidationMessage *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	SignedAt          *time.Time
	SignedBy          *string
}

// Editable reports whether the contract's mutable fields may still change.
// Signed contracts are immutable.
func (c Contract) Editable() bool {
	return c.Status != StatusSigned
}

// CanSign reports whether the contract is in a state that permits signing.
func (c Contract) CanSign() bool {
	return c.Status == StatusValidated
}

// CanValidate reports whether the contract may be (re-)submitted for
// validation. Re-validating a validated or rejected contract is allowed;
// contracts that entered the signing path are not, since signing is terminal.
func (c Contract) CanValidate() bool {
	return c.Status != StatusSigned && c.Status != StatusPendingSignature
}

// ResetValidation clears the outcome of a prior validation. Used when a
// validated contract is edited, which invalidates the earlier result.
func (c *Contract) ResetValidation() {
	c.Status = StatusDraft
	c.IsValidated = nil
	c.ValidationMessage = nil
}
