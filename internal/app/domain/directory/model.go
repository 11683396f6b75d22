// Package directory defines the entities exposed by the external CRM-like
// directory service.
package directory

// Account is an organisation record in the external directory.
type Account struct {
	ID       string
	Name     string
	Industry string
	Website  string
}

// Contact is a person record attached to a directory account.
type Contact struct {
	ID        string
	AccountID string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FullName joins the contact's first and last names.
func (c Contact) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ValidationRequest is the payload submitted to the directory's contract
// validation endpoint.
type ValidationRequest struct {
	AccountID    string
	ContactID    string
	Value        float64
	ContractType string
}

// ValidationResult is the directory's verdict on a proposed contract.
type ValidationResult struct {
	IsValid           bool
	Message           string
	ApprovalStatus    string
	CreditLimit       float64
	RequiredApprovers []string
}
