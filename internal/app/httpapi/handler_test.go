package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	app "github.com/lpichet/contracts-service/internal/app"
	directorysvc "github.com/lpichet/contracts-service/internal/app/services/directory"
	"github.com/lpichet/contracts-service/pkg/testutil"
)

func newTestServer(t *testing.T, dir *testutil.FakeDirectory) *httptest.Server {
	t.Helper()
	application := app.New(app.Stores{}, dir, nil)
	srv := httptest.NewServer(NewHandler(application))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

const createBody = `{
	"title": "Supply agreement",
	"description": "Annual supply agreement",
	"value": 50000,
	"contract_type": "Enterprise",
	"external_account_id": "acc-1",
	"external_contact_id": "con-1"
}`

func createContract(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	status, body := do(t, http.MethodPost, srv.URL+"/contracts", createBody)
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	return gjson.Get(body, "id").String()
}

func TestContractLifecycle(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodPost, srv.URL+"/contracts", createBody)
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	id := gjson.Get(body, "id").String()
	if gjson.Get(body, "status").String() != "draft" {
		t.Fatalf("expected draft, got %s", gjson.Get(body, "status").String())
	}
	if gjson.Get(body, "account_name").String() != "Acme Corp" {
		t.Fatalf("account name missing: %s", body)
	}
	if gjson.Get(body, "contact_name").String() != "Jane Doe" {
		t.Fatalf("contact name missing: %s", body)
	}

	status, body = do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", "")
	if status != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", status, body)
	}
	if gjson.Get(body, "status").String() != "validated" {
		t.Fatalf("expected validated, got %s", body)
	}
	if !gjson.Get(body, "is_validated").Bool() {
		t.Fatalf("expected is_validated true: %s", body)
	}

	status, body = do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/sign", `{"signed_by":"jane.doe"}`)
	if status != http.StatusOK {
		t.Fatalf("sign: expected 200, got %d: %s", status, body)
	}
	if gjson.Get(body, "status").String() != "signed" {
		t.Fatalf("expected signed, got %s", body)
	}
	if !gjson.Get(body, "signed_at").Exists() || gjson.Get(body, "signed_by").String() != "jane.doe" {
		t.Fatalf("signing fields missing: %s", body)
	}

	status, body = do(t, http.MethodGet, srv.URL+"/contracts", "")
	if status != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", status)
	}
	if gjson.Get(body, "#").Int() != 1 {
		t.Fatalf("expected one contract, got %s", body)
	}
}

func TestCreateUnknownAccountReturns400(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodPost, srv.URL+"/contracts", `{
		"title": "x",
		"external_account_id": "acc-missing",
		"external_contact_id": "con-1"
	}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}

	status, body = do(t, http.MethodGet, srv.URL+"/contracts", "")
	if status != http.StatusOK || gjson.Get(body, "#").Int() != 0 {
		t.Fatalf("expected empty list after failed create, got %d: %s", status, body)
	}
}

func TestCreateInvalidInputReturns400(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodPost, srv.URL+"/contracts", `{
		"external_account_id": "acc-1",
		"external_contact_id": "con-1"
	}`)
	if status != http.StatusBadRequest {
		t.Fatalf("missing title: expected 400, got %d: %s", status, body)
	}

	status, body = do(t, http.MethodPost, srv.URL+"/contracts", `{
		"title": "x",
		"value": -1,
		"external_account_id": "acc-1",
		"external_contact_id": "con-1"
	}`)
	if status != http.StatusBadRequest {
		t.Fatalf("negative value: expected 400, got %d: %s", status, body)
	}
}

func TestValidateSignedContractReturns400(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", ""); status != http.StatusOK {
		t.Fatalf("validate failed: %d", status)
	}
	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/sign", `{"signed_by":"jane.doe"}`); status != http.StatusOK {
		t.Fatalf("sign failed: %d", status)
	}

	status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", "")
	if status != http.StatusBadRequest {
		t.Fatalf("re-validate on signed: expected 400, got %d", status)
	}

	status, body := do(t, http.MethodGet, srv.URL+"/contracts/"+id, "")
	if status != http.StatusOK || gjson.Get(body, "status").String() != "signed" {
		t.Fatalf("signed status must survive, got %d: %s", status, body)
	}
}

func TestCreateMalformedJSONReturns400(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, _ := do(t, http.MethodPost, srv.URL+"/contracts", `{not json`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestGetUnknownContractReturns404(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, _ := do(t, http.MethodGet, srv.URL+"/contracts/missing", "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestValidationRejection(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodPost, srv.URL+"/contracts", `{
		"title": "Big deal",
		"value": 600000,
		"contract_type": "Enterprise",
		"external_account_id": "acc-1",
		"external_contact_id": "con-1"
	}`)
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}
	id := gjson.Get(body, "id").String()

	status, body = do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", "")
	if status != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d: %s", status, body)
	}
	if gjson.Get(body, "status").String() != "rejected" {
		t.Fatalf("expected rejected, got %s", body)
	}
	if !strings.Contains(gjson.Get(body, "validation_message").String(), "credit") {
		t.Fatalf("expected credit limit message, got %s", body)
	}
}

func TestValidateTransportFailureReturns502(t *testing.T) {
	dir := testutil.NewFakeDirectory()
	dir.ValidateErr = &directorysvc.TransportError{Op: "validate contract", Err: context.DeadlineExceeded}
	srv := newTestServer(t, dir)

	id := createContract(t, srv)

	status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", "")
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}

	status, body := do(t, http.MethodGet, srv.URL+"/contracts/"+id, "")
	if status != http.StatusOK || gjson.Get(body, "status").String() != "pending_validation" {
		t.Fatalf("expected pending_validation persisted, got %d: %s", status, body)
	}
}

func TestSignedContractCannotChange(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", ""); status != http.StatusOK {
		t.Fatalf("validate failed: %d", status)
	}
	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/sign", `{"signed_by":"jane.doe"}`); status != http.StatusOK {
		t.Fatalf("sign failed: %d", status)
	}

	status, _ := do(t, http.MethodPut, srv.URL+"/contracts/"+id, `{"title":"edit"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("update on signed: expected 400, got %d", status)
	}
	status, _ = do(t, http.MethodDelete, srv.URL+"/contracts/"+id, "")
	if status != http.StatusBadRequest {
		t.Fatalf("delete on signed: expected 400, got %d", status)
	}

	status, _ = do(t, http.MethodGet, srv.URL+"/contracts/"+id, "")
	if status != http.StatusOK {
		t.Fatalf("signed contract should still exist, got %d", status)
	}
}

func TestSignRequiresValidatedState(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/sign", `{"signed_by":"jane.doe"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 signing a draft, got %d", status)
	}
}

func TestSignRequiresSignedBy(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/sign", `{}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without signed_by, got %d", status)
	}
}

func TestUpdateResetsValidatedContract(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", ""); status != http.StatusOK {
		t.Fatalf("validate failed: %d", status)
	}

	status, body := do(t, http.MethodPut, srv.URL+"/contracts/"+id, `{
		"title": "Supply agreement v2",
		"value": 50000,
		"contract_type": "Enterprise"
	}`)
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", status, body)
	}
	if gjson.Get(body, "status").String() != "draft" {
		t.Fatalf("expected draft after editing validated contract, got %s", body)
	}
	if gjson.Get(body, "is_validated").Exists() {
		t.Fatalf("expected validation outcome cleared, got %s", body)
	}
}

func TestDeleteContract(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	status, _ := do(t, http.MethodDelete, srv.URL+"/contracts/"+id, "")
	if status != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}
	status, _ = do(t, http.MethodGet, srv.URL+"/contracts/"+id, "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestListAccountContacts(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodGet, srv.URL+"/directory/accounts/acc-1/contacts", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if gjson.Get(body, "#").Int() != 1 || gjson.Get(body, "0.first_name").String() != "Jane" {
		t.Fatalf("unexpected contacts: %s", body)
	}

	status, _ = do(t, http.MethodGet, srv.URL+"/directory/accounts/acc-missing/contacts", "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", status)
	}
}

func TestAuditTrail(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())
	id := createContract(t, srv)

	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/validate", ""); status != http.StatusOK {
		t.Fatalf("validate failed: %d", status)
	}
	if status, _ := do(t, http.MethodPost, srv.URL+"/contracts/"+id+"/sign", `{"signed_by":"jane.doe"}`); status != http.StatusOK {
		t.Fatalf("sign failed: %d", status)
	}

	status, body := do(t, http.MethodGet, srv.URL+"/audit", "")
	if status != http.StatusOK {
		t.Fatalf("audit: expected 200, got %d", status)
	}
	if gjson.Get(body, "#").Int() != 3 {
		t.Fatalf("expected 3 audit entries, got %s", body)
	}
	if gjson.Get(body, "2.action").String() != "sign" || gjson.Get(body, "2.actor").String() != "jane.doe" {
		t.Fatalf("unexpected last audit entry: %s", body)
	}

	status, body = do(t, http.MethodGet, srv.URL+"/audit?limit=1", "")
	if status != http.StatusOK || gjson.Get(body, "#").Int() != 1 {
		t.Fatalf("expected single entry with limit=1, got %d: %s", status, body)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if status != http.StatusOK || gjson.Get(body, "status").String() != "ok" {
		t.Fatalf("unexpected health response %d: %s", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testutil.NewFakeDirectory())

	status, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "contracts_service") {
		t.Fatalf("expected namespaced metrics, got: %.200s", body)
	}
}
