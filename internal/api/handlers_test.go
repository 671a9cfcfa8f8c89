package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/completeness"
	"github.com/medley-app/medley/internal/jobs"
	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/testutil"
	"github.com/medley-app/medley/internal/websocket"
)

type apiFixture struct {
	server *Server
	store  *media.Store
}

func newAPIFixture(t *testing.T, register func(q *jobs.Queue)) *apiFixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	store := media.NewStore(tdb.Conn)
	records := completeness.NewRecords(tdb.Conn)

	queue := jobs.NewQueue(nil, zerolog.Nop())
	if register != nil {
		register(queue)
	}

	hub := websocket.NewHub()
	server := NewServer(store, records, queue, nil, hub, zerolog.Nop())
	return &apiFixture{server: server, store: store}
}

func (f *apiFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.server.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestEnqueueValidation(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/jobs", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/jobs", `{"type":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown job type: status = %d, want 400", rec.Code)
	}
}

type idleRunner struct{}

func (idleRunner) Run(ctx context.Context, job *jobs.Job, report jobs.ReportFunc) (string, error) {
	return "", nil
}

func TestEnqueueAccepted(t *testing.T) {
	f := newAPIFixture(t, func(q *jobs.Queue) {
		q.Register(jobs.TypeLibraryScan, idleRunner{})
	})

	rec := f.do(http.MethodPost, "/api/jobs", `{"type":"library-scan","full":true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var job jobs.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if job.ID == "" || job.State != jobs.StatePending {
		t.Errorf("job = %+v, want pending with an id", job)
	}

	rec = f.do(http.MethodGet, "/api/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get queue: status = %d", rec.Code)
	}
	var state jobs.QueueState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(state.Queue) != 1 {
		t.Errorf("queue length = %d, want 1 (worker not started)", len(state.Queue))
	}
}

func TestCancelWithoutRunningJob(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodDelete, "/api/jobs/current", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestPauseResume(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/jobs/pause", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: status = %d", rec.Code)
	}
	var state jobs.QueueState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !state.Paused {
		t.Error("state should be paused")
	}

	rec = f.do(http.MethodPost, "/api/jobs/resume", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if state.Paused {
		t.Error("state should no longer be paused")
	}
}

func TestSourceEndpoints(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/sources", `{"name":"no kind"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing kind: status = %d, want 400", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/sources", `{"kind":"folder","name":"shelf","settings":{"path":"/media"},"enabled":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", rec.Code, rec.Body.String())
	}
	var created media.Source
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if created.ID == 0 {
		t.Error("created source should carry its id")
	}

	rec = f.do(http.MethodGet, "/api/sources", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var sources []media.Source
	if err := json.Unmarshal(rec.Body.Bytes(), &sources); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(sources) != 1 {
		t.Errorf("got %d sources, want 1", len(sources))
	}

	rec = f.do(http.MethodDelete, "/api/sources/notanumber", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestListItemsQueryValidation(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/items?sourceId=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad sourceId: status = %d, want 400", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/items?type=movie", "")
	if rec.Code != http.StatusOK {
		t.Errorf("valid filter: status = %d, want 200", rec.Code)
	}
}

func TestCompletenessEndpoints(t *testing.T) {
	f := newAPIFixture(t, nil)
	ctx := context.Background()

	records := f.server.records
	reports := []completeness.Report{
		{
			EntityType: completeness.EntitySeries, EntityKey: "100", Name: "Alpha",
			Total: 10, Owned: 8, Percent: 80, Status: completeness.StatusIncomplete,
			Missing: []completeness.MissingItem{
				{Key: "1:5", Label: "S01E05"},
				{Key: "1:6", Label: "S01E06"},
			},
			AnalyzedAt: time.Now().UTC(),
		},
		{
			EntityType: completeness.EntitySeries, EntityKey: "200", Name: "Beta",
			Total: 10, Owned: 10, Percent: 100, Status: completeness.StatusComplete,
			AnalyzedAt: time.Now().UTC(),
		},
	}
	if err := records.Replace(ctx, completeness.EntitySeries, reports); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	rec := f.do(http.MethodGet, "/api/completeness?entityType=series", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var listed []completeness.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d reports, want 2", len(listed))
	}

	// Dismissing a missing episode trims it from the report's missing list.
	// The report itself, its total, and its percentage stay visible.
	rec = f.do(http.MethodPut, "/api/exclusions", `{"entityType":"series","catalogKey":"1:5"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add exclusion: status = %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/completeness?entityType=series", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("exclusion hid a whole report: got %d, want 2", len(listed))
	}
	alpha := listed[0]
	if alpha.EntityKey != "100" {
		t.Fatalf("first report key = %q, want 100", alpha.EntityKey)
	}
	if len(alpha.Missing) != 1 || alpha.Missing[0].Key != "1:6" {
		t.Errorf("missing list = %+v, want only 1:6 left", alpha.Missing)
	}
	if alpha.Total != 10 || alpha.Owned != 8 || alpha.Percent != 80 {
		t.Errorf("exclusion changed the math: %+v", alpha)
	}

	rec = f.do(http.MethodGet, "/api/completeness?entityType=series&includeExcluded=true", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(listed[0].Missing) != 2 {
		t.Errorf("includeExcluded should show dismissed items, got %+v", listed[0].Missing)
	}

	var single completeness.Report
	rec = f.do(http.MethodGet, "/api/completeness/series/100", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &single); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(single.Missing) != 1 {
		t.Errorf("get should filter dismissed items too: %+v", single.Missing)
	}

	rec = f.do(http.MethodGet, "/api/completeness/series/999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing: status = %d, want 404", rec.Code)
	}
}

func TestExclusionValidation(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPut, "/api/exclusions", `{"entityType":"series"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing catalogKey: status = %d, want 400", rec.Code)
	}

	rec = f.do(http.MethodDelete, "/api/exclusions", `{"catalogKey":"100"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing entityType: status = %d, want 400", rec.Code)
	}
}
