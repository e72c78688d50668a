package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. *storage.DB (local),
// *storage.Memory and HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	ListTemplates(ctx context.Context) ([]models.Template, error)
	GetTemplate(ctx context.Context, id int64) (*models.Template, error)
	ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error)
	CompletedSetsBetween(ctx context.Context, start, end time.Time) ([]models.HistoricalSet, error)
	HistoricalSetsForExercise(ctx context.Context, exerciseName string, exclude uuid.UUID) ([]models.HistoricalSet, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// SettingsSource supplies the analytics flags. *settings.Store satisfies it.
type SettingsSource interface {
	Get(ctx context.Context) (analytics.Settings, error)
}

// Compile-time checks.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*storage.Memory)(nil)
)
