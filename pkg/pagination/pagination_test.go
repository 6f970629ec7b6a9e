package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patient"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("")
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.StartIndex != 0 {
		t.Errorf("expected startIndex 0, got %d", p.StartIndex)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("?limit=10&startIndex=30")
	if p.Limit != 10 || p.StartIndex != 30 {
		t.Errorf("expected limit=10 startIndex=30, got %+v", p)
	}
}

func TestFromContext_Bounds(t *testing.T) {
	if p := paramsFor("?limit=500"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
	if p := paramsFor("?limit=-3&startIndex=-7"); p.Limit != DefaultLimit || p.StartIndex != 0 {
		t.Errorf("expected defaults for negative values, got %+v", p)
	}
	if p := paramsFor("?limit=abc"); p.Limit != DefaultLimit {
		t.Errorf("expected default for non-numeric limit, got %d", p.Limit)
	}
}

func TestParams_Window(t *testing.T) {
	tests := []struct {
		p      Params
		total  int
		lo, hi int
	}{
		{Params{Limit: 10, StartIndex: 0}, 25, 0, 10},
		{Params{Limit: 10, StartIndex: 20}, 25, 20, 25},
		{Params{Limit: 10, StartIndex: 40}, 25, 25, 25},
		{Params{Limit: 10, StartIndex: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := tt.p.Window(tt.total)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Window(%+v, %d) = [%d,%d), want [%d,%d)", tt.p, tt.total, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestParams_Links(t *testing.T) {
	first := Params{Limit: 10, StartIndex: 0}.Links("/patient", 25)
	if len(first) != 1 || first[0].Rel != "next" || first[0].URI != "/patient?limit=10&startIndex=10" {
		t.Errorf("unexpected first page links %+v", first)
	}

	middle := Params{Limit: 10, StartIndex: 10}.Links("/patient", 25)
	if len(middle) != 2 || middle[1].Rel != "prev" || middle[1].URI != "/patient?limit=10&startIndex=0" {
		t.Errorf("unexpected middle page links %+v", middle)
	}

	last := Params{Limit: 10, StartIndex: 20}.Links("/patient", 25)
	if len(last) != 1 || last[0].Rel != "prev" {
		t.Errorf("unexpected last page links %+v", last)
	}

	if links := (Params{Limit: 10}).Links("/patient", 5); links != nil {
		t.Errorf("expected no links for a single page, got %+v", links)
	}
}
