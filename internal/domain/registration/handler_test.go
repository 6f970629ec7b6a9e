package registration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/intake/internal/card"
	"github.com/ehr/intake/internal/domain/age"
	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/internal/platform/auth"
	"github.com/ehr/intake/internal/registry"
)

type fakeSchema struct {
	types []attributes.Type
	err   error
}

func (f *fakeSchema) ListAttributeTypes(context.Context) ([]attributes.Type, error) {
	return f.types, f.err
}

type fakeRegistry struct {
	mu       sync.Mutex
	calls    int
	requests []*registry.CreatePatientRequest
	err      error
}

func (f *fakeRegistry) CreatePatient(_ context.Context, req *registry.CreatePatientRequest) (*registry.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &registry.Patient{UUID: "patient-1", Display: req.Identifiers[0].Identifier}, nil
}

func newTestHandler(schemaErr error) (*Handler, *fakeRegistry, *echo.Echo) {
	reg := &fakeRegistry{}
	svc := NewService(Config{PHNIdentifierType: phnIdentifierType, TimeZone: colombo},
		&fakeSchema{types: schema, err: schemaErr}, reg, NewSessionStore(time.Hour, nil), zerolog.Nop())
	svc.SetCalculator(age.NewCalculator(func() time.Time { return fixedNow }))
	return NewHandler(svc), reg, echo.New()
}

func newRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := auth.WithLocation(req.Context(), auth.Location{UUID: opd.ID, Name: opd.Name})
	return req.WithContext(ctx)
}

func startSession(t *testing.T, h *Handler, e *echo.Echo) View {
	t.Helper()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, "/api/v1/sessions", ""), rec)
	if err := h.StartSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var view View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return view
}

func call(t *testing.T, e *echo.Echo, fn echo.HandlerFunc, method, target, id, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(method, target, body), rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return rec, fn(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestHandler_StartSession(t *testing.T) {
	h, _, e := newTestHandler(nil)
	view := startSession(t, h, e)

	if view.ID == "" {
		t.Error("expected session id")
	}
	if view.Location != opd {
		t.Errorf("expected location %v, got %v", opd, view.Location)
	}
	if len(view.AttributeTypes) != 3 {
		t.Errorf("expected 3 attribute types, got %d", len(view.AttributeTypes))
	}
}

func TestHandler_StartSession_SchemaUnavailable(t *testing.T) {
	h, _, e := newTestHandler(errors.New("registry down"))
	_, err := call(t, e, h.StartSession, http.MethodPost, "/api/v1/sessions", "", "")
	expectStatus(t, err, http.StatusServiceUnavailable)
}

func TestHandler_SubmitFlow(t *testing.T) {
	h, reg, e := newTestHandler(nil)
	view := startSession(t, h, e)

	body := `{"given_name":"Amal","family_name":"Perera","date_of_birth":"2006-10-19","gender":"Male"}`
	rec, err := call(t, e, h.UpdateInput, http.MethodPut, "/", view.ID, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var updated View
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Age.Years != 20 {
		t.Errorf("expected age 20, got %d", updated.Age.Years)
	}

	rec, err = call(t, e, h.Submit, http.MethodPost, "/", view.ID, `{"print":true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var out Outcome
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Kind != OutcomeSuccess || out.DisplayName != "Amal Perera" || len(out.PHN) != 10 || !out.PrintRequested {
		t.Errorf("unexpected outcome %+v", out)
	}
	if reg.calls != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.calls)
	}

	rec, err = call(t, e, h.GetCard, http.MethodGet, "/", view.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Errorf("expected html card, got %s", rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.Contains(rec.Body.String(), out.PHN) {
		t.Error("expected card to contain the PHN")
	}
	if rec.Header().Get("Content-Security-Policy") != card.ContentSecurityPolicy {
		t.Errorf("expected card policy, got %q", rec.Header().Get("Content-Security-Policy"))
	}
}

func TestHandler_Submit_ValidationFailure(t *testing.T) {
	h, reg, e := newTestHandler(nil)
	view := startSession(t, h, e)

	rec, err := call(t, e, h.Submit, http.MethodPost, "/", view.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out Outcome
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Kind != OutcomeValidationFailure {
		t.Errorf("expected validation failure, got %s", out.Kind)
	}
	if reg.calls != 0 {
		t.Errorf("expected no registry calls, got %d", reg.calls)
	}
}

func TestHandler_Reset(t *testing.T) {
	h, _, e := newTestHandler(nil)
	view := startSession(t, h, e)

	_, err := call(t, e, h.UpdateInput, http.MethodPut, "/", view.ID, `{"given_name":"Amal"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = call(t, e, h.Reset, http.MethodPost, "/", view.ID, `{}`)
	expectStatus(t, err, http.StatusBadRequest)

	rec, err := call(t, e, h.Reset, http.MethodPost, "/", view.ID, `{"confirm":true}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var reset View
	json.Unmarshal(rec.Body.Bytes(), &reset)
	if !reset.Input.IsEmpty() {
		t.Errorf("expected empty input, got %+v", reset.Input)
	}
}

func TestHandler_UnknownSession(t *testing.T) {
	h, _, e := newTestHandler(nil)

	_, err := call(t, e, h.GetSession, http.MethodGet, "/", "nope", "")
	expectStatus(t, err, http.StatusNotFound)

	_, err = call(t, e, h.EndSession, http.MethodDelete, "/", "nope", "")
	expectStatus(t, err, http.StatusNotFound)
}

func TestHandler_GetCard_BeforeRegistration(t *testing.T) {
	h, _, e := newTestHandler(nil)
	view := startSession(t, h, e)

	_, err := call(t, e, h.GetCard, http.MethodGet, "/", view.ID, "")
	expectStatus(t, err, http.StatusNotFound)
}

func TestHandler_ComputeAge(t *testing.T) {
	h, _, e := newTestHandler(nil)

	rec, err := call(t, e, h.ComputeAge, http.MethodGet, "/api/v1/age?birthdate=2025-10-19", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a age.Age
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a != (age.Age{Years: 1}) {
		t.Errorf("expected 1 year, got %+v", a)
	}

	_, err = call(t, e, h.ComputeAge, http.MethodGet, "/api/v1/age?birthdate=bad", "", "")
	expectStatus(t, err, http.StatusBadRequest)

	_, err = call(t, e, h.ComputeAge, http.MethodGet, "/api/v1/age", "", "")
	expectStatus(t, err, http.StatusBadRequest)
}

func TestHandler_ListAttributeTypes(t *testing.T) {
	h, _, e := newTestHandler(nil)

	rec, err := call(t, e, h.ListAttributeTypes, http.MethodGet, "/api/v1/person-attribute-types", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Results []attributes.Type `json:"results"`
		Count   int               `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Count != 3 || body.Results[1].DisplayName != "Mobile Number" {
		t.Errorf("unexpected listing %+v", body)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, e := newTestHandler(nil)
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"POST /api/v1/sessions":            false,
		"PUT /api/v1/sessions/:id/input":   false,
		"POST /api/v1/sessions/:id/submit": false,
		"POST /api/v1/sessions/:id/reset":  false,
		"GET /api/v1/sessions/:id/card":    false,
		"GET /api/v1/age":                  false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}
