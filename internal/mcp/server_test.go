package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
)

type fixedSettings analytics.Settings

func (f fixedSettings) Get(context.Context) (analytics.Settings, error) {
	return analytics.Settings(f), nil
}

func ptr[T any](v T) *T { return &v }

// seed stores a push template and two completed bench sessions a week
// apart.
func seed(t *testing.T) *storage.Memory {
	t.Helper()
	ctx := context.Background()
	m := storage.NewMemory()
	tmpl := &models.Template{Name: "Push", Exercises: []models.TemplateExercise{
		{ExerciseName: "Bench Press", Sets: []models.TemplateSet{
			{Type: models.SetWarmup, Weight: ptr(40.0), Reps: ptr(10)},
			{Type: models.SetRegular, Weight: ptr(80.0), Reps: ptr(8)},
			{Type: models.SetRegular, Weight: ptr(80.0), Reps: ptr(8)},
		}},
	}}
	if err := m.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	for i, w := range []float64{80, 85} {
		done := base.AddDate(0, 0, 7*i)
		id := uuid.New()
		d := models.SessionDetail{
			Session: models.Session{ID: id, Name: "Push", StartedAt: done.Add(-time.Hour), CompletedAt: &done},
			Exercises: []models.ExerciseDetail{{
				ExerciseLog: models.ExerciseLog{SessionID: id, ID: 1, ExerciseName: "Bench Press"},
				Sets: []models.SetLog{
					{SessionID: id, ID: 2, ExerciseID: 1, Position: 0, Type: models.SetRegular, Number: 1, Weight: ptr(w), Reps: ptr(5), CompletedAt: &done},
					{SessionID: id, ID: 3, ExerciseID: 1, Position: 1, Type: models.SetRegular, Number: 2, Weight: ptr(w), Reps: ptr(5), CompletedAt: &done},
				},
			}},
		}
		if _, err := m.InsertCompletedSession(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func testHandlers(ds DataSource, cfg analytics.Settings) *handlers {
	return newHandlers(Deps{
		Data:               ds,
		Settings:           fixedSettings(cfg),
		Library:            library.Default(),
		DefaultRestSeconds: 120,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// decodeResult fails the test on tool errors and decodes the JSON text
// content into out.
func decodeResult(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	for _, c := range res.Content {
		tc, ok := c.(mcp.TextContent)
		if !ok {
			continue
		}
		if res.IsError {
			t.Fatalf("tool error: %s", tc.Text)
		}
		if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
			t.Fatalf("decoding result: %v", err)
		}
		return
	}
	t.Fatal("result has no text content")
}

// TestDefaultTimeRange verifies time range defaults and parsing.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 || end.Day() != 31 {
		t.Errorf("range = %v..%v, want Jan 1..31", start, end)
	}

	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err = defaultTimeRange("not-a-date", "", 7); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestProgramReportOverrides verifies per-call flags override the stored
// settings.
func TestProgramReportOverrides(t *testing.T) {
	h := testHandlers(seed(t), analytics.DefaultSettings())
	chest := func(args map[string]any) float64 {
		res, err := h.getProgramReport(context.Background(), callTool(args))
		if err != nil {
			t.Fatal(err)
		}
		var rep analytics.Report
		decodeResult(t, res, &rep)
		for _, row := range rep.Muscles {
			if row.Muscle == "Chest" {
				return row.EffectiveSets
			}
		}
		t.Fatal("no Chest row")
		return 0
	}
	if got := chest(nil); got != 2 {
		t.Errorf("chest = %v, want 2", got)
	}
	if got := chest(map[string]any{"templates": "1", "count_warmup": true}); got != 3 {
		t.Errorf("chest with warmups = %v, want 3", got)
	}

	res, _ := h.getProgramReport(context.Background(), callTool(map[string]any{"templates": "x"}))
	if !res.IsError {
		t.Error("invalid template id should be a tool error")
	}
}

// TestExerciseHistoryGroupsSessions verifies sets are grouped per workout,
// most recent first, with chronological 1RM points.
func TestExerciseHistoryGroupsSessions(t *testing.T) {
	h := testHandlers(seed(t), analytics.DefaultSettings())
	res, err := h.getExerciseHistory(context.Background(), callTool(map[string]any{"exercise": "bench press"}))
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Sessions []sessionSets              `json:"sessions"`
		OneRM    []analytics.OneRepMaxPoint `json:"one_rep_max"`
	}
	decodeResult(t, res, &got)
	if len(got.Sessions) != 2 || len(got.Sessions[0].Sets) != 2 {
		t.Fatalf("sessions = %+v", got.Sessions)
	}
	if *got.Sessions[0].Sets[0].Weight != 85 {
		t.Errorf("first session weight = %v, want 85 (most recent)", *got.Sessions[0].Sets[0].Weight)
	}
	var est []float64
	for _, p := range got.OneRM {
		est = append(est, p.Estimate)
	}
	want := []float64{
		analytics.EstimateOneRepMax(80, 5, nil),
		analytics.EstimateOneRepMax(85, 5, nil),
	}
	if diff := cmp.Diff(want, est); diff != "" {
		t.Errorf("1rm history mismatch (-want +got):\n%s", diff)
	}

	res, _ = h.getExerciseHistory(context.Background(), callTool(map[string]any{"exercise": "bench press", "sessions": float64(1)}))
	decodeResult(t, res, &got)
	if len(got.Sessions) != 1 {
		t.Errorf("limited sessions = %d, want 1", len(got.Sessions))
	}
}

// TestEstimateOneRepMaxTool verifies optional RPE handling and required
// arguments.
func TestEstimateOneRepMaxTool(t *testing.T) {
	h := testHandlers(storage.NewMemory(), analytics.DefaultSettings())
	res, _ := h.estimateOneRepMax(context.Background(), callTool(map[string]any{"weight": 100.0, "reps": 5.0, "rpe": 8.0}))
	var got map[string]float64
	decodeResult(t, res, &got)
	if want := analytics.EstimateOneRepMax(100, 5, ptr(8.0)); got["estimated_1rm"] != want {
		t.Errorf("estimate = %v, want %v", got["estimated_1rm"], want)
	}

	res, _ = h.estimateOneRepMax(context.Background(), callTool(map[string]any{"reps": 5.0}))
	if !res.IsError {
		t.Error("missing weight should be a tool error")
	}
}

// TestTrainingVolumeRange verifies only sessions inside the range count.
func TestTrainingVolumeRange(t *testing.T) {
	h := testHandlers(seed(t), analytics.DefaultSettings())
	res, _ := h.getTrainingVolume(context.Background(), callTool(map[string]any{"start": "2026-03-01", "end": "2026-03-05"}))
	var got struct {
		Report analytics.Report `json:"report"`
	}
	decodeResult(t, res, &got)
	if got.Report.EffectiveSets == 0 {
		t.Fatal("no volume in range")
	}
	for _, row := range got.Report.Muscles {
		if row.Muscle == "Chest" && row.EffectiveSets != 2 {
			t.Errorf("chest = %v, want 2 (one session)", row.EffectiveSets)
		}
	}
}

// TestLibraryResource verifies the library resource lists the catalog.
func TestLibraryResource(t *testing.T) {
	h := testHandlers(storage.NewMemory(), analytics.DefaultSettings())
	var req mcp.ReadResourceRequest
	req.Params.URI = "liftlog://library"
	contents, err := h.library(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var exercises []library.Exercise
	if err := json.Unmarshal([]byte(text), &exercises); err != nil {
		t.Fatal(err)
	}
	if len(exercises) != library.Default().Len() {
		t.Errorf("exercises = %d, want %d", len(exercises), library.Default().Len())
	}
}
