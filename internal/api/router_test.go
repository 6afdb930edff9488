package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/finfetch/internal/domain/dto"
	"github.com/guttosm/finfetch/internal/service"
)

// deadlineService reports whether the request context carried a deadline.
type deadlineService struct {
	mockScreeningService
	hadDeadline bool
}

func (d *deadlineService) Screen(ctx context.Context, req service.ScreenRequest) (*service.Report, error) {
	_, d.hadDeadline = ctx.Deadline()
	return d.mockScreeningService.Screen(ctx, req)
}

func TestNewRouter_WiringAndMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &deadlineService{mockScreeningService: mockScreeningService{report: sampleReport()}}
	r := NewRouter(NewHandler(svc, false), RouterConfig{RequestTimeout: time.Minute})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/screen?symbols=AAPL", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if !svc.hadDeadline {
		t.Fatalf("expected request context to carry a deadline")
	}

	var out dto.ScreenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestNewRouter_RateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &mockScreeningService{}
	r := NewRouter(NewHandler(svc, false), RouterConfig{RateLimit: 2, RateWindow: time.Hour})

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes: %v", codes)
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewHandler(&mockScreeningService{}, false), RouterConfig{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/aggregate", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
