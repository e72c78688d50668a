package mcp

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
)

// defaultTimeRange returns start/end defaulting to the given number of days
// before end.
func defaultTimeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("List all workout templates with their exercises and planned sets (type, target weight, reps, rest)."),
)

var toolGetProgramReport = mcp.NewTool("get_program_report",
	mcp.WithDescription("Analyze a training program made of workout templates: effective sets per muscle (primary sets count fully, auxiliary sets count half) and estimated duration per template. Muscles are sorted by effective sets."),
	mcp.WithString("templates", mcp.Description("Comma-separated template IDs. Defaults to all templates.")),
	mcp.WithBoolean("count_warmup", mcp.Description("Count warmup sets as effective. Defaults to the stored setting.")),
	mcp.WithBoolean("count_drop_sets", mcp.Description("Count drop sets as effective. Defaults to the stored setting.")),
)

var toolGetTrainingVolume = mcp.NewTool("get_training_volume",
	mcp.WithDescription("Effective sets per muscle actually logged in completed workouts within a time range."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 28 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithBoolean("count_warmup", mcp.Description("Count warmup sets as effective. Defaults to the stored setting.")),
	mcp.WithBoolean("count_drop_sets", mcp.Description("Count drop sets as effective. Defaults to the stored setting.")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Logged sets of one exercise grouped by completed workout, most recent first, plus the estimated one-rep max per workout in chronological order."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (case-insensitive, e.g. 'bench press')")),
	mcp.WithNumber("sessions", mcp.Description("Maximum number of workouts to include in the set listing. Defaults to 10.")),
)

var toolEstimateOneRepMax = mcp.NewTool("estimate_one_rep_max",
	mcp.WithDescription("Estimate a one-rep max from a single set using an RPE-adjusted percentage table. Returns 0 for invalid input."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight lifted in kg")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions performed")),
	mcp.WithNumber("rpe", mcp.Description("Rate of perceived exertion, 1-10. Defaults to 10.")),
)

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List completed workouts, most recent first."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts. Defaults to 20.")),
	mcp.WithNumber("offset", mcp.Description("Number of workouts to skip. Defaults to 0.")),
)

// --- Tool handlers ---

func (h *handlers) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.ds.ListTemplates(ctx)
	if err != nil {
		h.log.Error("mcp list_templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(templates)
}

func (h *handlers) getProgramReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var templates []models.Template
	ids := req.GetString("templates", "")
	if strings.TrimSpace(ids) == "" {
		all, err := h.ds.ListTemplates(ctx)
		if err != nil {
			h.log.Error("mcp get_program_report", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		templates = all
	}
	for _, raw := range strings.Split(ids, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return mcp.NewToolResultError("invalid template ID: " + raw), nil
		}
		t, err := h.ds.GetTemplate(ctx, id)
		if err != nil {
			return mcp.NewToolResultError("template " + raw + ": " + err.Error()), nil
		}
		templates = append(templates, *t)
	}

	cfg, err := h.settingsFor(ctx, req)
	if err != nil {
		return mcp.NewToolResultError("reading settings: " + err.Error()), nil
	}
	return jsonResult(analytics.Analyze(templates, h.lib, h.defaultRest).Report(cfg))
}

func (h *handlers) getTrainingVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 28)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	sets, err := h.ds.CompletedSetsBetween(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_training_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	cfg, err := h.settingsFor(ctx, req)
	if err != nil {
		return mcp.NewToolResultError("reading settings: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"start":  start,
		"end":    end,
		"report": analytics.AnalyzeHistory(sets, h.lib).Report(cfg),
	})
}

// sessionSets is one workout's sets in an exercise history.
type sessionSets struct {
	SessionID uuid.UUID       `json:"session_id"`
	Date      time.Time       `json:"date"`
	Sets      []models.SetLog `json:"sets"`
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	limit := int(req.GetFloat("sessions", 10))

	hist, err := h.ds.HistoricalSetsForExercise(ctx, name, uuid.Nil)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	// History arrives most recent session first.
	var sessions []sessionSets
	for _, s := range hist {
		if n := len(sessions); n == 0 || sessions[n-1].SessionID != s.SessionID {
			if n == limit {
				break
			}
			sessions = append(sessions, sessionSets{SessionID: s.SessionID, Date: s.SessionCompleted})
		}
		last := &sessions[len(sessions)-1]
		last.Sets = append(last.Sets, s.SetLog)
	}

	return jsonResult(map[string]any{
		"exercise":    name,
		"sessions":    sessions,
		"one_rep_max": analytics.OneRepMaxHistory(hist),
	})
}

func (h *handlers) estimateOneRepMax(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	reps, err := req.RequireFloat("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	var rpe *float64
	if v, ok := req.GetArguments()["rpe"].(float64); ok {
		rpe = &v
	}
	return jsonResult(map[string]float64{
		"estimated_1rm": analytics.EstimateOneRepMax(weight, int(reps), rpe),
	})
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", recentSessionsLimit))
	offset := int(req.GetFloat("offset", 0))
	sessions, err := h.ds.ListSessions(ctx, limit, offset)
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

// settingsFor reads the stored settings and applies per-call overrides.
func (h *handlers) settingsFor(ctx context.Context, req mcp.CallToolRequest) (analytics.Settings, error) {
	cfg := analytics.DefaultSettings()
	if h.settings != nil {
		stored, err := h.settings.Get(ctx)
		if err != nil {
			return cfg, err
		}
		cfg = stored
	}
	args := req.GetArguments()
	if v, ok := args["count_warmup"].(bool); ok {
		cfg.CountWarmupAsEffective = v
	}
	if v, ok := args["count_drop_sets"].(bool); ok {
		cfg.CountDropSetAsEffective = v
	}
	return cfg, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
