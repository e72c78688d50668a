package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/session"
	"github.com/meltforce/liftlog/internal/settings"
)

// closeTimeout bounds how long finishing a workout waits for its writes.
const closeTimeout = 10 * time.Second

var errSessionActive = errors.New("a workout is already in progress")

func statusFor(err error) int {
	switch {
	case isNotFound(err),
		errors.Is(err, session.ErrExerciseNotFound),
		errors.Is(err, session.ErrSetNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrFinished),
		errors.Is(err, errSessionActive):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidValue),
		errors.Is(err, session.ErrInvalidIndex),
		errors.Is(err, session.ErrIncompleteSet),
		errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) activeSession() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return nil, errNoActiveSession
	}
	return s.live, nil
}

// detach clears the live session if it is still sess.
func (s *Server) detach(sess *session.Session) {
	s.mu.Lock()
	if s.live == sess {
		s.live = nil
	}
	s.mu.Unlock()
}

type startRequest struct {
	TemplateID *int64 `json:"template_id"`
	Name       string `json:"name"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	var tmpl *models.Template
	if req.TemplateID != nil {
		t, err := s.store.GetTemplate(r.Context(), *req.TemplateID)
		if err != nil {
			writeError(w, err)
			return
		}
		tmpl = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil {
		writeError(w, errSessionActive)
		return
	}
	opts := s.opts
	if req.Name != "" {
		opts.Name = req.Name
	}
	sess, err := session.Start(r.Context(), s.store, opts, tmpl)
	if err != nil {
		writeError(w, err)
		return
	}
	s.live = sess
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.activeSession()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// withSession runs fn against the live session and answers with the
// resulting snapshot.
func (s *Server) withSession(w http.ResponseWriter, fn func(*session.Session) error) {
	sess, err := s.activeSession()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := fn(sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePatchSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartedAt time.Time `json:"started_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		return sess.SetStartedAt(req.StartedAt)
	})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		_, err := sess.AddExercise(req.Name)
		return err
	})
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		return sess.ReorderExercises(req.From, req.To)
	})
}

func (s *Server) handlePatchExercise(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	var req struct {
		Note    *string `json:"note"`
		ShowRPE *bool   `json:"show_rpe"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		if req.Note != nil {
			if err := sess.SetExerciseNote(ex, *req.Note); err != nil {
				return err
			}
		}
		if req.ShowRPE != nil {
			return sess.SetShowRPE(ex, *req.ShowRPE)
		}
		return nil
	})
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		return sess.RemoveExercise(ex)
	})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		_, err := sess.AddSet(ex)
		return err
	})
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "setID")
	if !ok {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		return sess.RemoveSet(ex, id)
	})
}

// handlePatchSet applies the fields present in the body. An explicit null
// clears a value.
func (s *Server) handlePatchSet(w http.ResponseWriter, r *http.Request) {
	ex, key, ok := setParams(w, r)
	if !ok {
		return
	}
	var fields map[string]json.RawMessage
	if !decodeJSON(w, r, &fields) {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		return patchSet(sess, ex, key, fields)
	})
}

func patchSet(sess *session.Session, ex int, key session.SetKey, fields map[string]json.RawMessage) error {
	if raw, ok := fields["weight"]; ok {
		var v *float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("weight: %w", session.ErrInvalidValue)
		}
		if err := sess.UpdateSetWeight(ex, key, v); err != nil {
			return err
		}
	}
	if raw, ok := fields["reps"]; ok {
		var v *int
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("reps: %w", session.ErrInvalidValue)
		}
		if err := sess.UpdateSetReps(ex, key, v); err != nil {
			return err
		}
	}
	if raw, ok := fields["rest_seconds"]; ok {
		var v *int
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("rest_seconds: %w", session.ErrInvalidValue)
		}
		if err := sess.UpdateSetRest(ex, key, v); err != nil {
			return err
		}
	}
	if raw, ok := fields["rpe"]; ok {
		var v *float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("rpe: %w", session.ErrInvalidValue)
		}
		if err := sess.UpdateSetRPE(ex, key, v); err != nil {
			return err
		}
	}
	// Type last: it renumbers the set.
	if raw, ok := fields["type"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return fmt.Errorf("type: %w", session.ErrInvalidValue)
		}
		typ, err := models.ParseSetType(name)
		if err != nil {
			return fmt.Errorf("%w: %w", session.ErrInvalidValue, err)
		}
		return sess.UpdateSetType(ex, key, typ)
	}
	return nil
}

func (s *Server) handleCycleSetType(w http.ResponseWriter, r *http.Request) {
	ex, key, ok := setParams(w, r)
	if !ok {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		_, err := sess.CycleSetType(ex, key)
		return err
	})
}

func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	ex, key, ok := setParams(w, r)
	if !ok {
		return
	}
	s.withSession(w, func(sess *session.Session) error {
		_, err := sess.CompleteSet(ex, key)
		return err
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, func(sess *session.Session) error {
		_, err := sess.UndoSetRemoval()
		return err
	})
}

func (s *Server) handleDiscardUndo(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, func(sess *session.Session) error {
		return sess.DiscardPendingRemoval()
	})
}

// handleTimer drives the rest timer: pause, resume, skip, add or subtract.
// add and subtract take ?seconds=, defaulting to 15.
func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	seconds := queryInt(r, "seconds", 15)
	var fn func(*session.Session) error
	switch chi.URLParam(r, "action") {
	case "pause":
		fn = (*session.Session).PauseTimer
	case "resume":
		fn = (*session.Session).ResumeTimer
	case "skip":
		fn = (*session.Session).SkipTimer
	case "add":
		fn = func(sess *session.Session) error { return sess.AddRestTime(seconds) }
	case "subtract":
		fn = func(sess *session.Session) error { return sess.SubtractRestTime(seconds) }
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown timer action"})
		return
	}
	s.withSession(w, fn)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r, (*session.Session).FinishWorkout)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.endSession(w, r, (*session.Session).CancelWorkout)
}

// endSession finishes or cancels the live workout, waits for its writes
// and releases the slot for the next one.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, end func(*session.Session) error) {
	sess, err := s.activeSession()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := end(sess); err != nil {
		writeError(w, err)
		return
	}
	s.detach(sess)
	snap := sess.Snapshot()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), closeTimeout)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		s.log.Error("closing workout", "session", snap.Session.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleEvents streams snapshots of the live workout as server-sent events
// until the client goes away or the workout ends.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.activeSession()
	if err != nil {
		writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	updates, cancel := sess.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.log.Error("encoding snapshot", "error", err)
				return
			}
			fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Version, data)
			flusher.Flush()
		}
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// setParams reads the exercise index and the {type}/{number} set key.
func setParams(w http.ResponseWriter, r *http.Request) (int, session.SetKey, bool) {
	ex, ok := intParam(w, r, "ex")
	if !ok {
		return 0, session.SetKey{}, false
	}
	typ, err := models.ParseSetType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, session.SetKey{}, false
	}
	n, ok := intParam(w, r, "number")
	if !ok {
		return 0, session.SetKey{}, false
	}
	return ex, session.SetKey{Type: typ, Number: n}, true
}
