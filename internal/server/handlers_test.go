package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/session"
	"github.com/meltforce/liftlog/internal/settings"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/timer"
)

type harness struct {
	srv   *Server
	store *storage.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"), analytics.DefaultSettings())
	if err != nil {
		t.Fatalf("opening settings: %v", err)
	}
	t.Cleanup(func() { cfg.Close() })

	store := storage.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(Deps{
		Store:    store,
		Library:  library.Default(),
		Settings: cfg,
		Session: session.Options{
			Scheduler:          timer.NewManualScheduler(),
			DefaultRestSeconds: 90,
		},
	}, log)
	t.Cleanup(func() { srv.Close(context.Background()) })
	return &harness{srv: srv, store: store}
}

// do sends a request through the full router and decodes a JSON response
// into out when it is not nil.
func (h *harness) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode error: %v", method, path, err)
		}
	}
	return rec.Code
}

const pushTemplate = `{
	"name": "Push",
	"exercises": [
		{"exercise_name": "Bench Press", "sets": [
			{"type": "warmup", "weight": 40, "reps": 10},
			{"type": "regular", "weight": 80, "reps": 8, "rest_seconds": 150},
			{"weight": 80, "reps": 8}
		]},
		{"exercise_name": "Triceps Pushdown", "sets": [{"weight": 25, "reps": 12}]}
	]
}`

// TestHandleMeDefault verifies /api/v1/me returns the local identity when
// the server is not on a tailnet.
func TestHandleMeDefault(t *testing.T) {
	h := newHarness(t)
	var info UserInfo
	if code := h.do(t, http.MethodGet, "/api/v1/me", "", &info); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if info != localUser {
		t.Errorf("info = %+v, want %+v", info, localUser)
	}
}

// TestCreateTemplateCanonicalizesTypes verifies set type spellings are
// normalized and missing types default to REGULAR.
func TestCreateTemplateCanonicalizesTypes(t *testing.T) {
	h := newHarness(t)
	var tmpl models.Template
	if code := h.do(t, http.MethodPost, "/api/v1/templates", pushTemplate, &tmpl); code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", code)
	}
	got := []models.SetType{}
	for _, s := range tmpl.Exercises[0].Sets {
		got = append(got, s.Type)
	}
	want := []models.SetType{models.SetWarmup, models.SetRegular, models.SetRegular}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("set %d type = %s, want %s", i, got[i], want[i])
		}
	}

	if code := h.do(t, http.MethodPost, "/api/v1/templates", `{"name":" "}`, nil); code != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", code)
	}
	if code := h.do(t, http.MethodGet, "/api/v1/templates/99", "", nil); code != http.StatusNotFound {
		t.Errorf("missing template status = %d, want 404", code)
	}
}

// TestStartSessionConflict verifies only one workout can be live.
func TestStartSessionConflict(t *testing.T) {
	h := newHarness(t)
	if code := h.do(t, http.MethodGet, "/api/v1/sessions/active", "", nil); code != http.StatusNotFound {
		t.Fatalf("active before start = %d, want 404", code)
	}
	var snap session.Snapshot
	if code := h.do(t, http.MethodPost, "/api/v1/sessions", `{"name":"Evening"}`, &snap); code != http.StatusCreated {
		t.Fatalf("start status = %d, want 201", code)
	}
	if snap.Session.Name != "Evening" {
		t.Errorf("name = %q, want Evening", snap.Session.Name)
	}
	if code := h.do(t, http.MethodPost, "/api/v1/sessions", "", nil); code != http.StatusConflict {
		t.Errorf("second start = %d, want 409", code)
	}
}

// TestWorkoutFlow drives a template workout through editing, completion,
// the rest timer and finishing, then checks what was stored.
func TestWorkoutFlow(t *testing.T) {
	h := newHarness(t)
	var tmpl models.Template
	h.do(t, http.MethodPost, "/api/v1/templates", pushTemplate, &tmpl)

	var snap session.Snapshot
	body := `{"template_id":` + itoa(tmpl.ID) + `}`
	if code := h.do(t, http.MethodPost, "/api/v1/sessions", body, &snap); code != http.StatusCreated {
		t.Fatalf("start status = %d", code)
	}
	if snap.Session.Name != "Push" || len(snap.Exercises) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	if code := h.do(t, http.MethodPatch, "/api/v1/sessions/active/exercises/0/sets/regular/1", `{"weight":82.5,"rpe":8}`, &snap); code != http.StatusOK {
		t.Fatalf("patch status = %d", code)
	}
	set := snap.Exercises[0].Sets[1]
	if *set.Weight != 82.5 || *set.RPE != 8 {
		t.Errorf("patched set = %+v", set.SetLog)
	}

	if code := h.do(t, http.MethodPost, "/api/v1/sessions/active/exercises/0/sets/REGULAR/1/complete", "", &snap); code != http.StatusOK {
		t.Fatalf("complete status = %d", code)
	}
	if snap.Timer.Status != timer.StatusRunning || snap.Timer.Total != 150 {
		t.Errorf("timer = %+v, want running 150s", snap.Timer)
	}

	if code := h.do(t, http.MethodPost, "/api/v1/sessions/active/timer/add?seconds=30", "", &snap); code != http.StatusOK {
		t.Fatalf("timer add status = %d", code)
	}
	if snap.Timer.Remaining != 180 {
		t.Errorf("remaining = %d, want 180", snap.Timer.Remaining)
	}
	if code := h.do(t, http.MethodPost, "/api/v1/sessions/active/timer/skip", "", &snap); code != http.StatusOK {
		t.Fatalf("timer skip status = %d", code)
	}
	if snap.Timer.Status != timer.StatusIdle {
		t.Errorf("timer after skip = %s, want idle", snap.Timer.Status)
	}

	if code := h.do(t, http.MethodPost, "/api/v1/sessions/active/finish", "", &snap); code != http.StatusOK {
		t.Fatalf("finish status = %d", code)
	}
	if !snap.Finished {
		t.Error("snapshot not finished")
	}
	if code := h.do(t, http.MethodGet, "/api/v1/sessions/active", "", nil); code != http.StatusNotFound {
		t.Errorf("active after finish = %d, want 404", code)
	}

	var stored models.SessionDetail
	if code := h.do(t, http.MethodGet, "/api/v1/sessions/"+snap.Session.ID.String(), "", &stored); code != http.StatusOK {
		t.Fatalf("get session status = %d", code)
	}
	if !stored.Completed() {
		t.Error("stored session not completed")
	}
	got := stored.Exercises[0].Sets[1]
	if got.CompletedAt == nil || *got.Weight != 82.5 {
		t.Errorf("stored set = %+v", got)
	}
}

// TestPatchSetNullClears verifies an explicit null removes a value while
// absent fields are left alone.
func TestPatchSetNullClears(t *testing.T) {
	h := newHarness(t)
	var tmpl models.Template
	h.do(t, http.MethodPost, "/api/v1/templates", pushTemplate, &tmpl)
	h.do(t, http.MethodPost, "/api/v1/sessions", `{"template_id":`+itoa(tmpl.ID)+`}`, nil)

	var snap session.Snapshot
	if code := h.do(t, http.MethodPatch, "/api/v1/sessions/active/exercises/1/sets/regular/1", `{"weight":null}`, &snap); code != http.StatusOK {
		t.Fatalf("patch status = %d", code)
	}
	set := snap.Exercises[1].Sets[0]
	if set.Weight != nil {
		t.Errorf("weight = %v, want nil", *set.Weight)
	}
	if set.Reps == nil || *set.Reps != 12 {
		t.Errorf("reps changed: %v", set.Reps)
	}
}

// TestEngineErrorsMapToStatus verifies sentinel errors become 400, 404 and
// 409 responses.
func TestEngineErrorsMapToStatus(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	h.do(t, http.MethodPost, "/api/v1/sessions/active/exercises", `{"name":"Deadlift"}`, nil)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/v1/sessions/active/exercises/0/sets/regular/1/complete", "", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/sessions/active/exercises/5/sets", "", http.StatusNotFound},
		{http.MethodPatch, "/api/v1/sessions/active/exercises/0/sets/drop/1", `{"reps":5}`, http.StatusNotFound},
		{http.MethodPatch, "/api/v1/sessions/active/exercises/0/sets/regular/1", `{"rpe":10.3}`, http.StatusBadRequest},
		{http.MethodPatch, "/api/v1/sessions/active/exercises/0/sets/superset/1", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/sessions/active/exercises/reorder", `{"from":0,"to":3}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/sessions/active/timer/rewind", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		if code := h.do(t, tc.method, tc.path, tc.body, nil); code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, code, tc.want)
		}
	}

	h.do(t, http.MethodPost, "/api/v1/sessions/active/cancel", "", nil)
	if code := h.do(t, http.MethodPost, "/api/v1/sessions/active/finish", "", nil); code != http.StatusNotFound {
		t.Errorf("finish after cancel = %d, want 404", code)
	}
}

// TestRemoveSetUndo verifies a removed set can be restored through the
// undo endpoint.
func TestRemoveSetUndo(t *testing.T) {
	h := newHarness(t)
	var tmpl models.Template
	h.do(t, http.MethodPost, "/api/v1/templates", pushTemplate, &tmpl)
	var snap session.Snapshot
	h.do(t, http.MethodPost, "/api/v1/sessions", `{"template_id":`+itoa(tmpl.ID)+`}`, &snap)

	id := snap.Exercises[0].Sets[1].ID
	if code := h.do(t, http.MethodDelete, "/api/v1/sessions/active/exercises/0/sets/"+itoa(id), "", &snap); code != http.StatusOK {
		t.Fatalf("remove status = %d", code)
	}
	if len(snap.Exercises[0].Sets) != 2 || snap.PendingRemoval == nil {
		t.Fatalf("after remove: %d sets, pending %v", len(snap.Exercises[0].Sets), snap.PendingRemoval)
	}
	if code := h.do(t, http.MethodPost, "/api/v1/sessions/active/undo", "", &snap); code != http.StatusOK {
		t.Fatalf("undo status = %d", code)
	}
	if len(snap.Exercises[0].Sets) != 3 || snap.Exercises[0].Sets[1].ID != id {
		t.Errorf("set not restored in place: %+v", snap.Exercises[0].Sets)
	}
}

// TestEventsStream verifies the event stream emits the current snapshot
// and ends when the workout is cancelled.
func TestEventsStream(t *testing.T) {
	h := newHarness(t)
	ts := httptest.NewServer(h.srv)
	defer ts.Close()
	h.do(t, http.MethodPost, "/api/v1/sessions", `{"name":"Stream"}`, nil)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ts.URL + "/api/v1/sessions/active/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	var first session.Snapshot
	for lines.Scan() {
		if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
			if err := json.Unmarshal([]byte(data), &first); err != nil {
				t.Fatalf("decoding event: %v", err)
			}
			break
		}
	}
	if first.Session.Name != "Stream" {
		t.Fatalf("first event session = %q, want Stream", first.Session.Name)
	}

	h.do(t, http.MethodPost, "/api/v1/sessions/active/cancel", "", nil)
	ended := false
	for lines.Scan() {
		if lines.Text() == "event: end" {
			ended = true
			break
		}
	}
	if !ended {
		t.Errorf("stream closed without end event: %v", lines.Err())
	}
}

// TestProgramReport verifies the program endpoint applies the stored
// warmup flag.
func TestProgramReport(t *testing.T) {
	h := newHarness(t)
	var tmpl models.Template
	h.do(t, http.MethodPost, "/api/v1/templates", pushTemplate, &tmpl)

	chest := func() float64 {
		var rep analytics.Report
		if code := h.do(t, http.MethodGet, "/api/v1/program?template="+itoa(tmpl.ID), "", &rep); code != http.StatusOK {
			t.Fatalf("program status = %d", code)
		}
		for _, row := range rep.Muscles {
			if row.Muscle == "Chest" {
				return row.EffectiveSets
			}
		}
		t.Fatal("no Chest row")
		return 0
	}
	if got := chest(); got != 2 {
		t.Errorf("chest without warmups = %v, want 2", got)
	}
	if code := h.do(t, http.MethodPut, "/api/v1/settings", `{"count_warmup_as_effective":true,"seconds_per_set":30}`, nil); code != http.StatusOK {
		t.Fatalf("put settings = %d", code)
	}
	if got := chest(); got != 3 {
		t.Errorf("chest with warmups = %v, want 3", got)
	}
}

// TestSettingsValidation verifies invalid settings are rejected and reset
// restores the defaults.
func TestSettingsValidation(t *testing.T) {
	h := newHarness(t)
	if code := h.do(t, http.MethodPut, "/api/v1/settings", `{"seconds_per_set":0}`, nil); code != http.StatusBadRequest {
		t.Errorf("zero seconds_per_set = %d, want 400", code)
	}
	h.do(t, http.MethodPut, "/api/v1/settings", `{"count_drop_set_as_effective":true,"seconds_per_set":45}`, nil)
	var got analytics.Settings
	if code := h.do(t, http.MethodDelete, "/api/v1/settings", "", &got); code != http.StatusOK {
		t.Fatalf("reset = %d", code)
	}
	if got != analytics.DefaultSettings() {
		t.Errorf("after reset = %+v, want defaults", got)
	}
}

// TestAlphaImportLogged verifies an upload is imported once and every
// attempt lands in the import log.
func TestAlphaImportLogged(t *testing.T) {
	h := newHarness(t)
	csv := "\"Legs\";\"2026-02-19 4:54 h\";\"1:02 hr\"\n" +
		"\"1. Hack Squats · Machine · 8 reps\"\n" +
		"#;KG;REPS;RIR\n1;115;8;1\n2;115;8;0\n"

	var first, second ingest.Result
	if code := h.do(t, http.MethodPost, "/api/v1/import/alpha?filename=export.csv", csv, &first); code != http.StatusOK {
		t.Fatalf("import status = %d", code)
	}
	h.do(t, http.MethodPost, "/api/v1/import/alpha", csv, &second)
	if first.SessionsInserted != 1 || second.SessionsSkipped != 1 {
		t.Errorf("first = %+v, second = %+v", first, second)
	}

	var logs []storage.ImportLog
	h.do(t, http.MethodGet, "/api/v1/import-logs", "", &logs)
	if len(logs) != 2 {
		t.Fatalf("import logs = %d, want 2", len(logs))
	}

	var hist struct {
		History []analytics.OneRepMaxPoint `json:"history"`
	}
	h.do(t, http.MethodGet, "/api/v1/exercises/Hack%20Squats/1rm", "", &hist)
	if len(hist.History) != 1 {
		t.Errorf("1rm history = %d points, want 1", len(hist.History))
	}
}

// TestEstimate verifies the estimator endpoint and its input validation.
func TestEstimate(t *testing.T) {
	h := newHarness(t)
	var got map[string]float64
	if code := h.do(t, http.MethodGet, "/api/v1/estimate?weight=100&reps=5&rpe=10", "", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if want := analytics.EstimateOneRepMax(100, 5, nil); got["estimated_1rm"] != want {
		t.Errorf("estimate = %v, want %v", got["estimated_1rm"], want)
	}
	if code := h.do(t, http.MethodGet, "/api/v1/estimate?reps=5", "", nil); code != http.StatusBadRequest {
		t.Errorf("missing weight = %d, want 400", code)
	}
	for _, q := range []string{
		"weight=NaN&reps=5",
		"weight=Inf&reps=5",
		"weight=-Inf&reps=5",
		"weight=100&reps=5&rpe=NaN",
		"weight=100&reps=5&rpe=Inf",
	} {
		if code := h.do(t, http.MethodGet, "/api/v1/estimate?"+q, "", nil); code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", q, code)
		}
	}
	if code := h.do(t, http.MethodPost, "/api/v1/estimate?weight=100&reps=5", "", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("POST estimate = %d, want 405", code)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
