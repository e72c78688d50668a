// Package server exposes the live workout and the training history over a
// JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/session"
	"github.com/meltforce/liftlog/internal/settings"
	"github.com/meltforce/liftlog/internal/storage"
)

// Store is the persistence the server needs. *storage.DB and
// *storage.Memory satisfy it.
type Store interface {
	session.Store
	ActiveSession(ctx context.Context) (*models.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error)
	CompletedSetsBetween(ctx context.Context, start, end time.Time) ([]models.HistoricalSet, error)
	InsertCompletedSession(ctx context.Context, d models.SessionDetail) (bool, error)

	CreateTemplate(ctx context.Context, t *models.Template) error
	DeleteTemplate(ctx context.Context, id int64) error
	GetTemplate(ctx context.Context, id int64) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)

	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*storage.Memory)(nil)
)

// Deps are the collaborators of a Server.
type Deps struct {
	Store    Store
	Library  *library.Catalog
	Settings *settings.Store
	// Session configures every workout the server starts or resumes.
	Session session.Options
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	library  *library.Catalog
	settings *settings.Store
	alpha    *alpha.Provider
	opts     session.Options
	log      *slog.Logger
	router   chi.Router
	identity func(http.Handler) http.Handler

	mu   sync.Mutex
	live *session.Session
}

// New creates a new Server with all routes configured.
func New(deps Deps, log *slog.Logger) *Server {
	opts := deps.Session
	if opts.Logger == nil {
		opts.Logger = log
	}
	s := &Server{
		store:    deps.Store,
		library:  deps.Library,
		settings: deps.Settings,
		alpha:    alpha.NewProvider(deps.Store, log),
		opts:     opts,
		log:      log,
		router:   chi.NewRouter(),
		identity: DevIdentity,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale makes requests carry the caller's tailnet identity instead
// of the local user. Must be called before serving.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = TailscaleIdentity(lc, s.log)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.withIdentity)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/library", s.handleLibrary)

		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)
		r.Route("/sessions/active", s.activeRoutes)
		r.Get("/sessions/{id}", s.handleGetSession)

		r.Get("/program", s.handleProgram)
		r.Get("/volume", s.handleVolume)
		r.Get("/history/sets", s.handleHistorySets)
		r.Get("/exercises/{name}/sets", s.handleExerciseSets)
		r.Get("/exercises/{name}/1rm", s.handleOneRepMaxHistory)
		r.Get("/estimate", s.handleEstimate)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Delete("/settings", s.handleResetSettings)
		r.Get("/stats", s.handleStats)
		r.Get("/import-logs", s.handleImportLogs)
		r.Post("/import/alpha", s.handleAlphaImport)
	})
}

func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.identity(next).ServeHTTP(w, r)
	})
}

func (s *Server) activeRoutes(r chi.Router) {
	r.Get("/", s.handleActiveSession)
	r.Patch("/", s.handlePatchSession)
	r.Get("/events", s.handleEvents)

	r.Post("/exercises", s.handleAddExercise)
	r.Post("/exercises/reorder", s.handleReorderExercises)
	r.Patch("/exercises/{ex}", s.handlePatchExercise)
	r.Delete("/exercises/{ex}", s.handleRemoveExercise)

	r.Post("/exercises/{ex}/sets", s.handleAddSet)
	r.Delete("/exercises/{ex}/sets/{setID}", s.handleRemoveSet)
	r.Patch("/exercises/{ex}/sets/{type}/{number}", s.handlePatchSet)
	r.Post("/exercises/{ex}/sets/{type}/{number}/cycle", s.handleCycleSetType)
	r.Post("/exercises/{ex}/sets/{type}/{number}/complete", s.handleCompleteSet)

	r.Post("/undo", s.handleUndo)
	r.Delete("/undo", s.handleDiscardUndo)

	r.Post("/timer/{action}", s.handleTimer)

	r.Post("/finish", s.handleFinish)
	r.Post("/cancel", s.handleCancel)
}

// ResumeActive reattaches the most recent unfinished session, if any.
func (s *Server) ResumeActive(ctx context.Context) error {
	info, err := s.store.ActiveSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	sess, err := session.Resume(ctx, s.store, s.opts, info.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.live = sess
	s.mu.Unlock()
	s.log.Info("resumed session", "id", info.ID, "name", info.Name)
	return nil
}

// Close flushes and closes the live session. The session stays unfinished
// in storage and is resumed on the next start.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	sess := s.live
	s.live = nil
	s.mu.Unlock()
	if sess == nil {
		return nil
	}
	return sess.Close(ctx)
}
