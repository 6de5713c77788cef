package schedgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type mockGenerator struct {
	result    Result
	purged    int
	purgeErr  error
	generated []Request
}

func (m *mockGenerator) Generate(ctx context.Context, req Request) Result {
	m.generated = append(m.generated, req)
	return m.result
}

func (m *mockGenerator) Purge(ctx context.Context, facilityID uuid.UUID) (int, error) {
	return m.purged, m.purgeErr
}

func setupHandler(gen *mockGenerator) (*echo.Echo, *Handler) {
	e := echo.New()
	h := NewHandler(gen)
	h.RegisterRoutes(e.Group("/api/v1/admin"))
	return e, h
}

func TestHandler_Generate_OK(t *testing.T) {
	gen := &mockGenerator{result: Result{Success: true, CasesGenerated: 120}}
	e, _ := setupHandler(gen)

	body := fmt.Sprintf(`{"facility_id":%q,"from":"2025-03-03T00:00:00Z","to":"2025-03-14T00:00:00Z","surgeons":[{"surgeon_id":%q,"name":"Dr. Chen","speed":"average","specialty":"joint","operating_days":[1],"procedures":["Total Knee Arthroplasty"]}]}`,
		testFacilityID, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.CasesGenerated != 120 {
		t.Errorf("expected 120 cases in response, got %d", result.CasesGenerated)
	}
	if len(gen.generated) != 1 {
		t.Fatalf("expected one service call, got %d", len(gen.generated))
	}
	if gen.generated[0].FacilityID != testFacilityID {
		t.Error("facility id not bound")
	}
}

func TestHandler_Generate_MissingFacility(t *testing.T) {
	e, _ := setupHandler(&mockGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/generate", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Generate_FailureIs422(t *testing.T) {
	gen := &mockGenerator{result: Result{Success: false, Error: "configuration error: no payers"}}
	e, _ := setupHandler(gen)

	body := fmt.Sprintf(`{"facility_id":%q,"surgeons":[]}`, testFacilityID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandler_Generate_SingleFlight(t *testing.T) {
	gen := &mockGenerator{result: Result{Success: true}}
	e, h := setupHandler(gen)

	// Simulate an in-progress run.
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	body := fmt.Sprintf(`{"facility_id":%q}`, testFacilityID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/generate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a run is in progress, got %d", rec.Code)
	}
	if len(gen.generated) != 0 {
		t.Error("service must not be called while a run is in progress")
	}
}

func TestHandler_Purge_OK(t *testing.T) {
	gen := &mockGenerator{purged: 77}
	e, _ := setupHandler(gen)

	body := fmt.Sprintf(`{"facility_id":%q}`, testFacilityID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/purge", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp["cases_deleted"] != 77 {
		t.Errorf("expected 77 deleted, got %d", resp["cases_deleted"])
	}
}

func TestHandler_Purge_MissingFacility(t *testing.T) {
	e, _ := setupHandler(&mockGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/purge", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Purge_ServiceError(t *testing.T) {
	gen := &mockGenerator{purgeErr: fmt.Errorf("connection lost")}
	e, _ := setupHandler(gen)

	body := fmt.Sprintf(`{"facility_id":%q}`, testFacilityID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/purge", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHandler_Status_Idle(t *testing.T) {
	e, _ := setupHandler(&mockGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/schedgen/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp["status"] != "idle" {
		t.Errorf("expected idle status, got %v", resp["status"])
	}
}

func TestHandler_Status_Running(t *testing.T) {
	e, h := setupHandler(&mockGenerator{})
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/schedgen/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp["status"] != "running" {
		t.Errorf("expected running status, got %v", resp["status"])
	}
}

func TestHandler_Status_ReportsLastResult(t *testing.T) {
	gen := &mockGenerator{result: Result{Success: true, CasesGenerated: 33}}
	e, _ := setupHandler(gen)

	body := fmt.Sprintf(`{"facility_id":%q}`, testFacilityID)
	genReq := httptest.NewRequest(http.MethodPost, "/api/v1/admin/schedgen/generate", strings.NewReader(body))
	genReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(httptest.NewRecorder(), genReq)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/schedgen/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp struct {
		Status string `json:"status"`
		Last   Result `json:"last"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Status != "idle" || resp.Last.CasesGenerated != 33 {
		t.Errorf("expected last result surfaced, got %+v", resp)
	}
}
