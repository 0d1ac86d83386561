package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

type scheduleReaderStub struct {
	items []match.Match
	err   error
}

func (s *scheduleReaderStub) List(context.Context) ([]match.Match, error) {
	return s.items, s.err
}

type scheduleSyncerStub struct {
	report   usecase.SyncReport
	err      error
	last     *usecase.SyncReport
	runCalls int
}

func (s *scheduleSyncerStub) Run(context.Context) (usecase.SyncReport, error) {
	s.runCalls++
	return s.report, s.err
}

func (s *scheduleSyncerStub) LastReport() (usecase.SyncReport, bool) {
	if s.last == nil {
		return usecase.SyncReport{}, false
	}
	return *s.last, true
}

func newTestRouter(t *testing.T, reader ScheduleReader, syncer ScheduleSyncer, token string) http.Handler {
	t.Helper()
	handler := NewHandler(reader, syncer, logging.NewNop())
	return NewRouter(handler, logging.NewNop(), []string{"*"}, token)
}

func mustParseMatches(t *testing.T, raw string) []match.Match {
	t.Helper()
	items, err := match.ParseList([]byte(raw))
	if err != nil {
		t.Fatalf("parse matches: %v", err)
	}
	return items
}

func TestRoot_ReturnsPlainText(t *testing.T) {
	router := newTestRouter(t, &scheduleReaderStub{}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("unexpected content type: %q", got)
	}
	if rec.Body.String() != rootMessage {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestUnknownPath_NotFound(t *testing.T) {
	router := newTestRouter(t, &scheduleReaderStub{}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestListSchedules_ReturnsBareArrayInCacheOrder(t *testing.T) {
	items := mustParseMatches(t, `[{"id":7,"tournament":{"name":"Liga 1"},"status":{"type":"notstarted"}},{"id":3,"status":{"type":"finished"}}]`)
	router := newTestRouter(t, &scheduleReaderStub{items: items}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedules", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := strings.TrimSpace(rec.Body.String())
	if !strings.HasPrefix(body, `[{"id":7,"tournament"`) {
		t.Fatalf("expected bare array preserving field order, got %s", body)
	}

	var decoded []map[string]any
	if err := sonic.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if len(decoded) != 2 || decoded[1]["id"] != float64(3) {
		t.Fatalf("unexpected body: %v", decoded)
	}
}

func TestListSchedules_EmptyCacheIsEmptyArray(t *testing.T) {
	router := newTestRouter(t, &scheduleReaderStub{}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedules", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestListSchedules_ErrorUsesEnvelope(t *testing.T) {
	reader := &scheduleReaderStub{err: errors.New("boom")}
	router := newTestRouter(t, reader, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedules", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestHealthz_Envelope(t *testing.T) {
	router := newTestRouter(t, &scheduleReaderStub{}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != `{"apiVersion":"2.0","data":{"status":"ok"}}` {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestGetLastSync_NotFoundBeforeFirstRun(t *testing.T) {
	router := newTestRouter(t, &scheduleReaderStub{}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sync/last", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestGetLastSync_ReturnsReport(t *testing.T) {
	last := usecase.SyncReport{
		RunID:        "run-1",
		StartedAt:    time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC),
		DateCount:    30,
		TotalMatches: 12,
	}
	router := newTestRouter(t, &scheduleReaderStub{}, &scheduleSyncerStub{last: &last}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sync/last", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		Data usecase.SyncReport `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Data.RunID != "run-1" || body.Data.TotalMatches != 12 {
		t.Fatalf("unexpected report: %+v", body.Data)
	}
}

func TestRunSyncScheduleJob_RequiresConfiguredToken(t *testing.T) {
	syncer := &scheduleSyncerStub{}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", nil)
	req.Header.Set(internalJobTokenHeader, "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if syncer.runCalls != 0 {
		t.Fatalf("sync must not run without a configured token")
	}
}

func TestRunSyncScheduleJob_RejectsWrongToken(t *testing.T) {
	syncer := &scheduleSyncerStub{}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", nil)
	req.Header.Set(internalJobTokenHeader, "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if syncer.runCalls != 0 {
		t.Fatalf("sync must not run with a wrong token")
	}
}

func TestRunSyncScheduleJob_RejectsUnknownFields(t *testing.T) {
	syncer := &scheduleSyncerStub{}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", strings.NewReader(`{"days":7}`))
	req.Header.Set(internalJobTokenHeader, "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if syncer.runCalls != 0 {
		t.Fatalf("sync must not run on a bad payload")
	}
}

func TestRunSyncScheduleJob_RejectsLongReason(t *testing.T) {
	syncer := &scheduleSyncerStub{}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "secret")

	body := `{"reason":"` + strings.Repeat("x", 201) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", strings.NewReader(body))
	req.Header.Set(internalJobTokenHeader, "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRunSyncScheduleJob_RunsAndReturnsReport(t *testing.T) {
	syncer := &scheduleSyncerStub{report: usecase.SyncReport{RunID: "run-2", FetchedCount: 4, TotalMatches: 9}}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", strings.NewReader(`{"reason":"manual backfill"}`))
	req.Header.Set(internalJobTokenHeader, " secret ")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if syncer.runCalls != 1 {
		t.Fatalf("expected one sync run, got %d", syncer.runCalls)
	}
	var body struct {
		Data usecase.SyncReport `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Data.RunID != "run-2" || body.Data.TotalMatches != 9 {
		t.Fatalf("unexpected report: %+v", body.Data)
	}
}

func TestRunSyncScheduleJob_EmptyBodyAccepted(t *testing.T) {
	syncer := &scheduleSyncerStub{report: usecase.SyncReport{RunID: "run-3"}}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", nil)
	req.Header.Set(internalJobTokenHeader, "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRunSyncScheduleJob_PersistFailureIsInternal(t *testing.T) {
	syncer := &scheduleSyncerStub{err: errors.Join(usecase.ErrPersistFailed, errors.New("disk full"))}
	router := newTestRouter(t, &scheduleReaderStub{}, syncer, "secret")

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-schedule", nil)
	req.Header.Set(internalJobTokenHeader, "secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "persistFailed") {
		t.Fatalf("expected persistFailed reason, got %s", rec.Body.String())
	}
}

type panickingReader struct{}

func (panickingReader) List(context.Context) ([]match.Match, error) {
	panic("reader exploded")
}

func TestRecoverPanic_ReturnsInternalError(t *testing.T) {
	router := newTestRouter(t, panickingReader{}, &scheduleSyncerStub{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedules", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}
