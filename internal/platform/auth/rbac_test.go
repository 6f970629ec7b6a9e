package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRoleCheck(t *testing.T, userRoles []string, required ...string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, userRoles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	return rec, RequireRole(required...)(handler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	rec, err := runRoleCheck(t, []string{"registrar"}, "registrar", "nurse")
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	_, err := runRoleCheck(t, []string{"billing"}, "registrar")
	if err == nil {
		t.Fatal("expected error for unauthorized role")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	_, err := runRoleCheck(t, nil, "registrar")
	if err == nil {
		t.Error("expected error when no roles are present")
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	_, err := runRoleCheck(t, []string{"admin"}, "registrar")
	if err != nil {
		t.Error("admin should bypass role checks")
	}
}

func TestUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "user-123")
	if uid := UserIDFromContext(ctx); uid != "user-123" {
		t.Errorf("expected user-123, got %s", uid)
	}
	if empty := UserIDFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string, got %s", empty)
	}
}

func TestLocationFromContext(t *testing.T) {
	loc := Location{UUID: "loc-1", Name: "OPD"}
	got := LocationFromContext(WithLocation(context.Background(), loc))
	if got != loc {
		t.Errorf("expected %v, got %v", loc, got)
	}
	if !LocationFromContext(context.Background()).IsZero() {
		t.Error("expected zero location on empty context")
	}
}
