// Package httpapi exposes the contract lifecycle service over REST and maps
// domain errors to HTTP status codes.
package httpapi

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/lpichet/contracts-service/internal/app"
	"github.com/lpichet/contracts-service/internal/app/domain/contract"
	"github.com/lpichet/contracts-service/internal/app/metrics"
	contractssvc "github.com/lpichet/contracts-service/internal/app/services/contracts"
	directorysvc "github.com/lpichet/contracts-service/internal/app/services/directory"
	"github.com/lpichet/contracts-service/internal/app/storage"
	"github.com/lpichet/contracts-service/internal/httputil"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// NewHandler returns a router exposing the contracts REST API. When
// AUDIT_LOG_PATH is set, contract mutations are additionally appended there
// as JSONL.
func NewHandler(application *app.Application) http.Handler {
	sink, _ := newFileAuditSink(os.Getenv("AUDIT_LOG_PATH"))
	h := &handler{
		app:   application,
		audit: newAuditLog(0, sink),
	}

	r := mux.NewRouter()
	r.HandleFunc("/contracts", h.listContracts).Methods(http.MethodGet)
	r.HandleFunc("/contracts", h.createContract).Methods(http.MethodPost)
	r.HandleFunc("/contracts/{id}", h.getContract).Methods(http.MethodGet)
	r.HandleFunc("/contracts/{id}", h.updateContract).Methods(http.MethodPut)
	r.HandleFunc("/contracts/{id}", h.deleteContract).Methods(http.MethodDelete)
	r.HandleFunc("/contracts/{id}/validate", h.validateContract).Methods(http.MethodPost)
	r.HandleFunc("/contracts/{id}/sign", h.signContract).Methods(http.MethodPost)
	r.HandleFunc("/directory/accounts/{id}/contacts", h.listAccountContacts).Methods(http.MethodGet)
	r.HandleFunc("/audit", h.listAudit).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

func (h *handler) listContracts(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Contracts.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	result := make([]contractResponse, 0, len(list))
	for _, c := range list {
		result = append(result, toResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) createContract(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title             string  `json:"title"`
		Description       string  `json:"description"`
		Value             float64 `json:"value"`
		ContractType      string  `json:"contract_type"`
		ExternalAccountID string  `json:"external_account_id"`
		ExternalContactID string  `json:"external_contact_id"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	c, err := h.app.Contracts.Create(r.Context(), contractssvc.CreateInput{
		Title:             payload.Title,
		Description:       payload.Description,
		Value:             payload.Value,
		ContractType:      payload.ContractType,
		ExternalAccountID: payload.ExternalAccountID,
		ExternalContactID: payload.ExternalContactID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, c.ID, "create", string(c.Status), "")
	httputil.WriteJSON(w, http.StatusCreated, toResponse(c))
}

func (h *handler) getContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Contracts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *handler) updateContract(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title        string  `json:"title"`
		Description  string  `json:"description"`
		Value        float64 `json:"value"`
		ContractType string  `json:"contract_type"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}

	c, err := h.app.Contracts.Update(r.Context(), mux.Vars(r)["id"], contractssvc.UpdateInput{
		Title:        payload.Title,
		Description:  payload.Description,
		Value:        payload.Value,
		ContractType: payload.ContractType,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, c.ID, "update", string(c.Status), "")
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *handler) deleteContract(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.app.Contracts.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, id, "delete", "", "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) validateContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Contracts.Validate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, c.ID, "validate", string(c.Status), "")
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *handler) signContract(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SignedBy string `json:"signed_by"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if payload.SignedBy == "" {
		httputil.BadRequest(w, "signed_by is required")
		return
	}

	c, err := h.app.Contracts.Sign(r.Context(), mux.Vars(r)["id"], payload.SignedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.recordAudit(r, c.ID, "sign", string(c.Status), payload.SignedBy)
	httputil.WriteJSON(w, http.StatusOK, toResponse(c))
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	httputil.WriteJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

func (h *handler) recordAudit(r *http.Request, contractID, action, status, actor string) {
	h.audit.add(auditEntry{
		Time:       time.Now().UTC(),
		ContractID: contractID,
		Action:     action,
		Status:     status,
		Actor:      actor,
		RemoteAddr: r.RemoteAddr,
	})
}

func (h *handler) listAccountContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.app.Contracts.ListAccountContacts(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, directorysvc.ErrNotFound) {
			httputil.NotFound(w, "account not found")
			return
		}
		writeServiceError(w, err)
		return
	}

	result := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		result = append(result, contactResponse{
			ID:        c.ID,
			AccountID: c.AccountID,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			Phone:     c.Phone,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps domain errors onto the HTTP status codes of the API
// contract. Unexpected errors become a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var terr *directorysvc.TransportError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.NotFound(w, "contract not found")
	case errors.Is(err, contractssvc.ErrInvalidState),
		errors.Is(err, contractssvc.ErrReferenceNotFound),
		errors.Is(err, contractssvc.ErrInvalidInput):
		httputil.BadRequest(w, err.Error())
	case errors.As(err, &terr):
		httputil.BadGateway(w, err.Error())
	default:
		httputil.InternalError(w, err.Error())
	}
}

type contractResponse struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	ContractType      string     `json:"contract_type"`
	Value             float64    `json:"value"`
	Status            string     `json:"status"`
	ExternalAccountID string     `json:"external_account_id"`
	ExternalContactID string     `json:"external_contact_id"`
	AccountName       string     `json:"account_name"`
	ContactName       string     `json:"contact_name"`
	ContactEmail      string     `json:"contact_email"`
	IsValidated       *bool      `json:"is_validated,omitempty"`
	ValidationMessage *string    `json:"validation_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	SignedAt          *time.Time `json:"signed_at,omitempty"`
	SignedBy          *string    `json:"signed_by,omitempty"`
}

type contactResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func toResponse(c contract.Contract) contractResponse {
	return contractResponse{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		ContractType:      c.ContractType,
		Value:             c.Value,
		Status:            string(c.Status),
		ExternalAccountID: c.ExternalAccountID,
		ExternalContactID: c.ExternalContactID,
		AccountName:       c.AccountName,
		ContactName:       c.ContactName,
		ContactEmail:      c.ContactEmail,
		IsValidated:       c.IsValidated,
		ValidationMessage: c.ValidationMessage,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		SignedAt:          c.SignedAt,
		SignedBy:          c.SignedBy,
	}
}
