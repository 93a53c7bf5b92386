package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/duongvyyyx/anti-traffic-jam/module/core/domain"
	"github.com/duongvyyyx/anti-traffic-jam/module/core/internal/hub"
)

type mockReportService struct {
	reportFn func(ctx context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error)
}

func (m *mockReportService) Report(ctx context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error) {
	return m.reportFn(ctx, cand)
}

type mockQueryService struct {
	eventsNearFn func(ctx context.Context, q domain.RadiusQuery) ([]*domain.TrafficEvent, error)
	listActiveFn func(ctx context.Context) []*domain.TrafficEvent
	subscribeFn  func(filter *domain.Filter) (*hub.Subscription, []*domain.TrafficEvent)
}

func (m *mockQueryService) EventsNear(ctx context.Context, q domain.RadiusQuery) ([]*domain.TrafficEvent, error) {
	return m.eventsNearFn(ctx, q)
}

func (m *mockQueryService) ListActive(ctx context.Context) []*domain.TrafficEvent {
	return m.listActiveFn(ctx)
}

func (m *mockQueryService) Subscribe(filter *domain.Filter) (*hub.Subscription, []*domain.TrafficEvent) {
	return m.subscribeFn(filter)
}

func setupRouter(report reportService, query queryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewEventHandler(report, query)
	group := r.Group("", RequireIdentity(OpaqueVerifier{}))
	h.Register(group)
	return r
}

func sampleEvent() *domain.TrafficEvent {
	return &domain.TrafficEvent{
		ID:         "ev-1",
		Type:       domain.EventAccident,
		Latitude:   -6.2088,
		Longitude:  106.8456,
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		ReporterID: "user-1",
	}
}

func TestHandleReport_Success(t *testing.T) {
	report := &mockReportService{
		reportFn: func(_ context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error) {
			if cand.UserID != "token-abc" {
				t.Fatalf("expected identity token-abc, got %s", cand.UserID)
			}
			return sampleEvent(), nil
		},
	}
	r := setupRouter(report, &mockQueryService{})

	body := `{"type":"accident","latitude":-6.2088,"longitude":106.8456,"userId":"spoofed"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/report", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got domain.TrafficEvent
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.ID != "ev-1" {
		t.Errorf("expected ev-1, got %s", got.ID)
	}
}

func TestHandleReport_MissingToken(t *testing.T) {
	r := setupRouter(&mockReportService{}, &mockQueryService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/report", strings.NewReader(`{"type":"police","latitude":1,"longitude":2}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandleReport_InvalidBody(t *testing.T) {
	r := setupRouter(&mockReportService{}, &mockQueryService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/report", strings.NewReader(`{not json`))
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleReport_ValidationError(t *testing.T) {
	report := &mockReportService{
		reportFn: func(_ context.Context, cand *domain.ReportCandidate) (*domain.TrafficEvent, error) {
			return nil, domain.InvalidCoordinateError(cand.Latitude, cand.Longitude)
		},
	}
	r := setupRouter(report, &mockQueryService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/report", strings.NewReader(`{"type":"police","latitude":200,"longitude":2}`))
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleEvents_Success(t *testing.T) {
	query := &mockQueryService{
		eventsNearFn: func(_ context.Context, q domain.RadiusQuery) ([]*domain.TrafficEvent, error) {
			if q.Latitude != -6.2088 || q.Longitude != 106.8456 || q.RadiusKm != 5 {
				t.Fatalf("unexpected query: %+v", q)
			}
			return []*domain.TrafficEvent{sampleEvent()}, nil
		},
	}
	r := setupRouter(&mockReportService{}, query)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/events?lat=-6.2088&lon=106.8456&radius=5", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got []domain.TrafficEvent
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ev-1" {
		t.Fatalf("expected [ev-1], got %v", got)
	}
}

func TestHandleEvents_DefaultRadius(t *testing.T) {
	query := &mockQueryService{
		eventsNearFn: func(_ context.Context, q domain.RadiusQuery) ([]*domain.TrafficEvent, error) {
			if q.RadiusKm != defaultRadiusKm {
				t.Fatalf("expected default radius, got %v", q.RadiusKm)
			}
			return nil, nil
		},
	}
	r := setupRouter(&mockReportService{}, query)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/events?lat=1&lon=2", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleEvents_NoCenterReturnsRecencyFeed(t *testing.T) {
	query := &mockQueryService{
		listActiveFn: func(context.Context) []*domain.TrafficEvent {
			return []*domain.TrafficEvent{sampleEvent()}
		},
	}
	r := setupRouter(&mockReportService{}, query)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/events", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []domain.TrafficEvent
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestHandleEvents_BadParams(t *testing.T) {
	r := setupRouter(&mockReportService{}, &mockQueryService{})

	for _, path := range []string{
		"/events?lat=abc&lon=1",
		"/events?lat=1&lon=abc",
		"/events?lat=1&lon=2&radius=-3",
		"/events?lat=1&lon=2&radius=xyz",
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer token-abc")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestHandleLive_SnapshotThenInsert(t *testing.T) {
	h := hub.New(8)

	subscribed := make(chan *hub.Subscription, 1)
	query := &mockQueryService{
		subscribeFn: func(filter *domain.Filter) (*hub.Subscription, []*domain.TrafficEvent) {
			sub, _ := h.Subscribe(filter)
			subscribed <- sub
			return sub, []*domain.TrafficEvent{sampleEvent()}
		},
	}
	r := setupRouter(&mockReportService{}, query)

	go func() {
		sub := <-subscribed
		h.NotifyInsert(&domain.TrafficEvent{ID: "ev-2", Type: domain.EventPolice, Latitude: 1, Longitude: 2})
		time.Sleep(50 * time.Millisecond)
		sub.Cancel() // ends the stream
	}()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/events/live", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "event:snapshot") {
		t.Fatalf("expected snapshot event, got: %s", body)
	}
	if !strings.Contains(body, "event:insert") || !strings.Contains(body, "ev-2") {
		t.Fatalf("expected insert of ev-2, got: %s", body)
	}
}

func TestHandleLive_BadFilter(t *testing.T) {
	r := setupRouter(&mockReportService{}, &mockQueryService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/events/live?lat=abc&lon=1", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
