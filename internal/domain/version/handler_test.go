package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newHandlerFixture(p *mockProber) (*echo.Echo, *Handler) {
	e := echo.New()
	r := newTestResolver(p, fixedClock(2023))
	h := NewHandler(NewService(r))
	h.RegisterRoutes(e.Group("/api/v1"))
	return e, h
}

func TestHandlerLatest(t *testing.T) {
	p := &mockProber{exists: map[string]bool{
		testBase + "DXCCSR_v2023-1.zip": true,
	}}
	e, _ := newHandlerFixture(p)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/dx/latest", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp tagResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Version != "v2023.1" || resp.Family != FamilyDiagnosis {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.File != "v2023-1" {
		t.Errorf("file_version = %q", resp.File)
	}
}

func TestHandlerResolveExplicitVersion(t *testing.T) {
	e, _ := newHandlerFixture(&mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/pr/versions/v2020.3", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp tagResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Pre-2021 procedure tags render with the underscore era separator.
	if resp.File != "v2020_3" {
		t.Errorf("file_version = %q, want v2020_3", resp.File)
	}
}

func TestHandlerLatestBadFamily(t *testing.T) {
	e, _ := newHandlerFixture(&mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/icd9/latest", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerLatestIgnoresVersionParam(t *testing.T) {
	// Explicit tags resolve under /versions/:version; a stray version query
	// param does not change what /latest returns.
	p := &mockProber{exists: map[string]bool{
		testBase + "DXCCSR_v2023-1.zip": true,
	}}
	e, _ := newHandlerFixture(p)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/dx/latest?version=v2019.9", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp tagResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Version != "v2023.1" {
		t.Errorf("version = %q, want v2023.1", resp.Version)
	}
}

func TestHandlerResolveBadVersion(t *testing.T) {
	e, _ := newHandlerFixture(&mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/dx/versions/2020", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerVersions(t *testing.T) {
	p := &mockProber{
		pages: map[string]string{
			testBase + "dxccsr.jsp":       `<a href="DXCCSR_v2023-1.zip">x</a>`,
			testBase + "ccsr_archive.jsp": `DXCCSR_v2022-1.zip`,
		},
	}
	e, _ := newHandlerFixture(p)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/dx/versions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp []tagResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].Version != "v2023.1" || resp[1].Version != "v2022.1" {
		t.Errorf("unexpected versions: %+v", resp)
	}
}

func TestHandlerVersionsEmptyCatalogIs404(t *testing.T) {
	e, _ := newHandlerFixture(&mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ccsr/dx/versions", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
