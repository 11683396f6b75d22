// Package directory implements the client for the external CRM-like
// directory service that provides account and contact lookups plus contract
// validation and signing notifications.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lpichet/contracts-service/internal/app/domain/directory"
	"github.com/lpichet/contracts-service/internal/app/metrics"
	"github.com/lpichet/contracts-service/pkg/logger"
)

// ErrNotFound reports that the directory answered with a well-formed
// "not found" for the requested entity.
var ErrNotFound = errors.New("directory entity not found")

// TransportError reports that an outbound call did not complete: timeout,
// connection fault, an unexpected status code, or a malformed response body.
type TransportError struct {
	Op     string // e.g. "fetch account"
	Status int    // HTTP status when one was received, 0 otherwise
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("directory %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is the capability set the lifecycle service needs from the external
// directory.
type Client interface {
	FetchAccount(ctx context.Context, id string) (directory.Account, error)
	FetchContact(ctx context.Context, id string) (directory.Contact, error)
	FetchContactsForAccount(ctx context.Context, accountID string) ([]directory.Contact, error)
	ValidateContract(ctx context.Context, req directory.ValidationRequest) (directory.ValidationResult, error)
	NotifySigned(ctx context.Context, accountID, contractID string) (bool, error)
}

// Config configures the HTTP client. The base URL and timeout are passed
// explicitly at construction; there is no ambient registration.
type Config struct {
	BaseURL string
	Timeout time.Duration // defaults to 30s
}

// HTTPClient implements Client over the directory's REST API.
type HTTPClient struct {
	client  *http.Client
	baseURL *url.URL
	log     *logger.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs a directory client from the provided config.
func NewHTTPClient(cfg Config, log *logger.Logger) (*HTTPClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("directory base URL required")
	}
	parsed, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse directory base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("directory-client")
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: parsed,
		log:     log,
	}, nil
}

// FetchAccount retrieves an account record. A remote 404 is reported as
// ErrNotFound; every other failure is a TransportError.
func (c *HTTPClient) FetchAccount(ctx context.Context, id string) (directory.Account, error) {
	var payload struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Industry string `json:"industry"`
		Website  string `json:"website"`
	}
	if err := c.getEntity(ctx, "fetch account", "/accounts/"+url.PathEscape(id), &payload); err != nil {
		return directory.Account{}, err
	}
	return directory.Account{
		ID:       payload.ID,
		Name:     payload.Name,
		Industry: payload.Industry,
		Website:  payload.Website,
	}, nil
}

// FetchContact retrieves a contact record, with the same error contract as
// FetchAccount.
func (c *HTTPClient) FetchContact(ctx context.Context, id string) (directory.Contact, error) {
	var payload contactPayload
	if err := c.getEntity(ctx, "fetch contact", "/contacts/"+url.PathEscape(id), &payload); err != nil {
		return directory.Contact{}, err
	}
	return payload.toDomain(), nil
}

// FetchContactsForAccount lists the contacts attached to an account. There is
// no absent case: any non-success status is a transport failure.
func (c *HTTPClient) FetchContactsForAccount(ctx context.Context, accountID string) ([]directory.Contact, error) {
	const op = "fetch contacts"

	resp, err := c.get(ctx, op, "/accounts/"+url.PathEscape(accountID)+"/contacts")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(op, &TransportError{Op: op, Status: resp.StatusCode})
	}

	var payload struct {
		Contacts []contactPayload `json:"contacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, c.fail(op, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)})
	}

	contacts := make([]directory.Contact, 0, len(payload.Contacts))
	for _, p := range payload.Contacts {
		contacts = append(contacts, p.toDomain())
	}
	metrics.ObserveDirectoryCall(op, "ok")
	return contacts, nil
}

// ValidateContract submits a proposed contract for validation. A malformed or
// empty success body is a protocol failure, surfaced as a TransportError.
func (c *HTTPClient) ValidateContract(ctx context.Context, req directory.ValidationRequest) (directory.ValidationResult, error) {
	const op = "validate contract"

	body := map[string]any{
		"account_id":    req.AccountID,
		"contact_id":    req.ContactID,
		"value":         req.Value,
		"contract_type": req.ContractType,
	}
	resp, err := c.post(ctx, op, "/contracts/validate", body)
	if err != nil {
		return directory.ValidationResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return directory.ValidationResult{}, c.fail(op, &TransportError{Op: op, Status: resp.StatusCode})
	}

	var payload struct {
		IsValid           *bool    `json:"is_valid"`
		Message           string   `json:"message"`
		ApprovalStatus    string   `json:"approval_status"`
		CreditLimit       float64  `json:"credit_limit"`
		RequiredApprovers []string `json:"required_approvers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return directory.ValidationResult{}, c.fail(op, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)})
	}
	if payload.IsValid == nil {
		return directory.ValidationResult{}, c.fail(op, &TransportError{Op: op, Err: errors.New("empty validation verdict")})
	}

	metrics.ObserveDirectoryCall(op, "ok")
	return directory.ValidationResult{
		IsValid:           *payload.IsValid,
		Message:           payload.Message,
		ApprovalStatus:    payload.ApprovalStatus,
		CreditLimit:       payload.CreditLimit,
		RequiredApprovers: payload.RequiredApprovers,
	}, nil
}

// NotifySigned tells the directory a contract was signed. A non-success
// status degrades to false rather than an error; only connection-level
// failures are raised.
func (c *HTTPClient) NotifySigned(ctx context.Context, accountID, contractID string) (bool, error) {
	const op = "notify signed"

	body := map[string]any{
		"account_id":  accountID,
		"contract_id": contractID,
	}
	resp, err := c.post(ctx, op, "/contracts/notify-signed", body)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithField("status", resp.StatusCode).Warn("sign notification not acknowledged")
		metrics.ObserveDirectoryCall(op, "degraded")
		return false, nil
	}
	metrics.ObserveDirectoryCall(op, "ok")
	return true, nil
}

// getEntity performs a GET for a single record, translating 404 to
// ErrNotFound and everything else unexpected to a TransportError.
func (c *HTTPClient) getEntity(ctx context.Context, op, path string, target any) error {
	resp, err := c.get(ctx, op, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		metrics.ObserveDirectoryCall(op, "absent")
		return ErrNotFound
	default:
		return c.fail(op, &TransportError{Op: op, Status: resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return c.fail(op, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)})
	}
	metrics.ObserveDirectoryCall(op, "ok")
	return nil
}

func (c *HTTPClient) get(ctx context.Context, op, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String()+path, nil)
	if err != nil {
		return nil, c.fail(op, &TransportError{Op: op, Err: err})
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail(op, &TransportError{Op: op, Err: err})
	}
	return resp, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, body map[string]any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, c.fail(op, &TransportError{Op: op, Err: err})
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+path, strings.NewReader(string(encoded)))
	if err != nil {
		return nil, c.fail(op, &TransportError{Op: op, Err: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail(op, &TransportError{Op: op, Err: err})
	}
	return resp, nil
}

func (c *HTTPClient) fail(op string, terr *TransportError) error {
	metrics.ObserveDirectoryCall(op, "failure")
	c.log.WithError(terr).WithField("op", op).Warn("directory call failed")
	return terr
}

type contactPayload struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (p contactPayload) toDomain() directory.Contact {
	return directory.Contact{
		ID:        p.ID,
		AccountID: p.AccountID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	}
}
