package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
)

// Memory is an in-process store with the same methods and referential rules
// as DB. It backs `serve --memory` and tests.
type Memory struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]models.Session
	exercises    map[uuid.UUID]map[int64]models.ExerciseLog
	sets         map[uuid.UUID]map[int64]models.SetLog
	templates    map[int64]models.Template
	nextTemplate int64
	imports      []ImportLog
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[uuid.UUID]models.Session),
		exercises: make(map[uuid.UUID]map[int64]models.ExerciseLog),
		sets:      make(map[uuid.UUID]map[int64]models.SetLog),
		templates: make(map[int64]models.Template),
	}
}

// UpsertSession inserts or fully replaces a session row.
func (m *Memory) UpsertSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// DeleteSession removes a session with its exercises and sets.
func (m *Memory) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.exercises, id)
	delete(m.sets, id)
	return nil
}

// GetSession returns a session with its exercises and sets.
func (m *Memory) GetSession(_ context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	d := &models.SessionDetail{Session: s}
	for _, e := range sortedExercises(m.exercises[id]) {
		d.Exercises = append(d.Exercises, models.ExerciseDetail{ExerciseLog: e, Sets: m.exerciseSets(id, e.ID)})
	}
	return d, nil
}

// ActiveSession returns the most recently started unfinished session.
func (m *Memory) ActiveSession(_ context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Session
	for _, s := range m.sessions {
		if s.Completed() {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("active session: %w", ErrNotFound)
	}
	return latest, nil
}

// ListSessions returns completed sessions, most recent first.
func (m *Memory) ListSessions(_ context.Context, limit, offset int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.completedSessions()
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(*out[j].CompletedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[max(offset, 0):]
	return out[:min(limit, len(out))], nil
}

// InsertCompletedSession writes a finished session unless its id exists.
func (m *Memory) InsertCompletedSession(_ context.Context, d models.SessionDetail) (bool, error) {
	if d.CompletedAt == nil {
		return false, fmt.Errorf("inserting completed session %s: not completed", d.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[d.ID]; ok {
		return false, nil
	}
	m.sessions[d.ID] = d.Session
	for _, e := range d.Exercises {
		log := e.ExerciseLog
		log.SessionID = d.ID
		m.putExercise(log)
		for _, s := range e.Sets {
			s.SessionID, s.ExerciseID = d.ID, log.ID
			m.putSet(s)
		}
	}
	return true, nil
}

// UpsertExerciseLog inserts or fully replaces an exercise row.
func (m *Memory) UpsertExerciseLog(_ context.Context, e models.ExerciseLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[e.SessionID]; !ok {
		return fmt.Errorf("upserting exercise log %d: session %s: %w", e.ID, e.SessionID, ErrNotFound)
	}
	m.putExercise(e)
	return nil
}

// DeleteExerciseLog removes an exercise row and its sets.
func (m *Memory) DeleteExerciseLog(_ context.Context, sessionID uuid.UUID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.exercises[sessionID], id)
	for sid, s := range m.sets[sessionID] {
		if s.ExerciseID == id {
			delete(m.sets[sessionID], sid)
		}
	}
	return nil
}

// UpsertSetLog inserts or fully replaces a set row.
func (m *Memory) UpsertSetLog(_ context.Context, s models.SetLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exercises[s.SessionID][s.ExerciseID]; !ok {
		return fmt.Errorf("upserting set log %d: exercise %d: %w", s.ID, s.ExerciseID, ErrNotFound)
	}
	m.putSet(s)
	return nil
}

// DeleteSetLog removes a set row.
func (m *Memory) DeleteSetLog(_ context.Context, sessionID uuid.UUID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[sessionID], id)
	return nil
}

// HistoricalSetsForExercise returns the completed sets of an exercise in
// completed sessions other than exclude, most recent session first.
func (m *Memory) HistoricalSetsForExercise(_ context.Context, exerciseName string, exclude uuid.UUID) ([]models.HistoricalSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := m.completedSessions()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CompletedAt.After(*sessions[j].CompletedAt) })

	var out []models.HistoricalSet
	for _, s := range sessions {
		if s.ID == exclude {
			continue
		}
		for _, e := range sortedExercises(m.exercises[s.ID]) {
			if !strings.EqualFold(e.ExerciseName, strings.TrimSpace(exerciseName)) {
				continue
			}
			out = append(out, m.historical(s, e)...)
		}
	}
	return out, nil
}

// CompletedSetsBetween returns the completed sets of sessions completed in
// [start, end), oldest session first.
func (m *Memory) CompletedSetsBetween(_ context.Context, start, end time.Time) ([]models.HistoricalSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := m.completedSessions()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CompletedAt.Before(*sessions[j].CompletedAt) })

	var out []models.HistoricalSet
	for _, s := range sessions {
		if s.CompletedAt.Before(start) || !s.CompletedAt.Before(end) {
			continue
		}
		for _, e := range sortedExercises(m.exercises[s.ID]) {
			out = append(out, m.historical(s, e)...)
		}
	}
	return out, nil
}

// CreateTemplate stores a template and assigns its id.
func (m *Memory) CreateTemplate(_ context.Context, t *models.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTemplate++
	t.ID = m.nextTemplate
	m.templates[t.ID] = copyTemplate(*t)
	return nil
}

// DeleteTemplate removes a template.
func (m *Memory) DeleteTemplate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

// GetTemplate returns one template.
func (m *Memory) GetTemplate(_ context.Context, id int64) (*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	t = copyTemplate(t)
	return &t, nil
}

// ListTemplates returns all templates ordered by name.
func (m *Memory) ListTemplates(_ context.Context) ([]models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, copyTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// InsertImportLog records an import and returns its ID.
func (m *Memory) InsertImportLog(_ context.Context, log ImportLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = int64(len(m.imports) + 1)
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	m.imports = append(m.imports, log)
	return log.ID, nil
}

// QueryImportLogs returns the most recent import logs.
func (m *Memory) QueryImportLogs(_ context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ImportLog
	for i := len(m.imports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.imports[i])
	}
	return out, nil
}

// GetDataStats returns aggregate statistics over completed sessions.
func (m *Memory) GetDataStats(_ context.Context) (*DataStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &DataStats{TotalTemplates: int64(len(m.templates))}
	byName := make(map[string]*ExerciseStat)
	for _, s := range m.completedSessions() {
		stats.TotalSessions++
		if stats.EarliestData == nil || s.StartedAt.Before(*stats.EarliestData) {
			t := s.StartedAt
			stats.EarliestData = &t
		}
		if stats.LatestData == nil || s.CompletedAt.After(*stats.LatestData) {
			t := *s.CompletedAt
			stats.LatestData = &t
		}
		for _, e := range m.exercises[s.ID] {
			st, ok := byName[e.ExerciseName]
			if !ok {
				st = &ExerciseStat{Name: e.ExerciseName}
				byName[e.ExerciseName] = st
			}
			st.Sessions++
			for _, set := range m.exerciseSets(s.ID, e.ID) {
				if set.CompletedAt != nil {
					st.Sets++
					stats.TotalSets++
				}
			}
		}
	}
	for _, st := range byName {
		stats.TopExercises = append(stats.TopExercises, *st)
	}
	sort.Slice(stats.TopExercises, func(i, j int) bool {
		a, b := stats.TopExercises[i], stats.TopExercises[j]
		if a.Sets != b.Sets {
			return a.Sets > b.Sets
		}
		return a.Name < b.Name
	})
	if len(stats.TopExercises) > topExercisesLimit {
		stats.TopExercises = stats.TopExercises[:topExercisesLimit]
	}
	return stats, nil
}

func (m *Memory) putExercise(e models.ExerciseLog) {
	if m.exercises[e.SessionID] == nil {
		m.exercises[e.SessionID] = make(map[int64]models.ExerciseLog)
	}
	m.exercises[e.SessionID][e.ID] = e
}

func (m *Memory) putSet(s models.SetLog) {
	if m.sets[s.SessionID] == nil {
		m.sets[s.SessionID] = make(map[int64]models.SetLog)
	}
	m.sets[s.SessionID][s.ID] = s
}

func (m *Memory) completedSessions() []models.Session {
	var out []models.Session
	for _, s := range m.sessions {
		if s.Completed() {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) exerciseSets(sessionID uuid.UUID, exerciseID int64) []models.SetLog {
	var out []models.SetLog
	for _, s := range m.sets[sessionID] {
		if s.ExerciseID == exerciseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *Memory) historical(s models.Session, e models.ExerciseLog) []models.HistoricalSet {
	var out []models.HistoricalSet
	for _, set := range m.exerciseSets(s.ID, e.ID) {
		if set.CompletedAt == nil {
			continue
		}
		out = append(out, models.HistoricalSet{SetLog: set, ExerciseName: e.ExerciseName, SessionCompleted: *s.CompletedAt})
	}
	return out
}

func sortedExercises(m map[int64]models.ExerciseLog) []models.ExerciseLog {
	out := make([]models.ExerciseLog, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func copyTemplate(t models.Template) models.Template {
	exercises := make([]models.TemplateExercise, len(t.Exercises))
	for i, ex := range t.Exercises {
		exercises[i] = models.TemplateExercise{
			ExerciseName: ex.ExerciseName,
			Sets:         append([]models.TemplateSet(nil), ex.Sets...),
		}
	}
	t.Exercises = exercises
	return t
}
