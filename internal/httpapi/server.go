package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/macro-onboarding/internal/logger"
	"github.com/joelkehle/macro-onboarding/internal/onboarding"
	"github.com/joelkehle/macro-onboarding/internal/store"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Engine   *onboarding.Engine
	Sessions store.SessionStore
	// Profiles receives the export of every completed session. Optional.
	Profiles store.ProfileSink
	Logger   *logger.Logger
	Now      func() time.Time
}

type Server struct {
	engine   *onboarding.Engine
	sessions store.SessionStore
	profiles store.ProfileSink
	log      *logger.Logger
	now      func() time.Time
	newID    func() string

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewServer(cfg Config) http.Handler {
	return newServer(cfg).routes()
}

func newServer(cfg Config) *Server {
	s := &Server{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		profiles: cfg.Profiles,
		log:      cfg.Logger,
		now:      cfg.Now,
		newID:    uuid.NewString,
		locks:    map[string]*sessionLock{},
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/onboarding/sessions", s.handleSessions)
	mux.HandleFunc("/v1/onboarding/sessions/", s.handleSessionPath)
	mux.HandleFunc("/v1/metabolic-profile", s.handleMetabolicProfile)
	mux.HandleFunc("/v1/profiles/", s.handleProfiles)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func decodeJSONBytes(blob []byte, dst any) error {
	return json.Unmarshal(blob, dst)
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// lockSession serializes turns on one session id. The returned func
// releases the lock.
func (s *Server) lockSession(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func turnPayload(id string, res onboarding.TurnResult) map[string]any {
	payload := map[string]any{
		"ok":                 true,
		"session_id":         id,
		"message":            res.Message,
		"message_html":       renderMarkdown(res.Message),
		"state":              res.State,
		"is_complete":        res.IsComplete,
		"next_missing_field": res.NextMissingField,
		"collected_data":     res.Data,
	}
	if res.MetabolicProfile != nil {
		payload["metabolic_profile"] = res.MetabolicProfile
	}
	if res.Export != nil {
		payload["db_export"] = res.Export
	}
	return payload
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	res := s.engine.Start(r.Context())
	rec := store.Record{ID: s.newID(), Session: res.Session()}
	if err := s.sessions.Put(r.Context(), rec); err != nil {
		s.log.Error("store session failed", "session_id", rec.ID, "error", err)
		writeAPIError(w, storeError("session", rec.ID, err))
		return
	}
	s.log.Info("onboarding session started", "session_id", rec.ID)
	writeJSON(w, http.StatusCreated, turnPayload(rec.ID, res))
}

func (s *Server) handleSessionPath(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/onboarding/sessions/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		case http.MethodDelete:
			s.handleDeleteSession(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "turns":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.handleTurn(w, r, id)
	case "export":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		s.handleExport(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request, id string) {
	blob, err := readBody(r)
	if err != nil {
		writeAPIError(w, validationJSONError(err))
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSONBytes(blob, &req); err != nil {
		writeAPIError(w, validationJSONError(err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeAPIError(w, validationError("message is required"))
		return
	}

	unlock := s.lockSession(id)
	defer unlock()

	rec, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeAPIError(w, storeError("session", id, err))
		return
	}
	if rec.Complete {
		writeAPIError(w, newError(CodeConflict, "session "+id+" is already complete", false))
		return
	}

	res, err := s.engine.ProcessTurn(r.Context(), req.Message, rec.Session)
	if err != nil {
		if errors.Is(err, onboarding.ErrInvalidHistory) {
			writeAPIError(w, newError(CodeConflict, err.Error(), false))
			return
		}
		writeAPIError(w, err)
		return
	}

	rec.Session = res.Session()
	rec.Complete = res.IsComplete
	if err := s.sessions.Put(r.Context(), rec); err != nil {
		s.log.Error("store session failed", "session_id", id, "error", err)
		writeAPIError(w, storeError("session", id, err))
		return
	}
	if res.IsComplete && res.Export != nil && s.profiles != nil {
		if err := s.profiles.SaveProfile(r.Context(), id, *res.Export); err != nil {
			s.log.Error("save profile failed", "session_id", id, "error", err)
			writeAPIError(w, storeError("profile", id, err))
			return
		}
		s.log.Info("profile saved", "session_id", id)
	}
	writeJSON(w, http.StatusOK, turnPayload(id, res))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeAPIError(w, storeError("session", id, err))
		return
	}
	data := rec.Session.Data
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                   true,
		"session_id":           rec.ID,
		"state":                data.State(),
		"is_complete":          rec.Complete,
		"next_missing_field":   data.NextMissingField(),
		"collected_data":       data,
		"conversation_history": rec.Session.History,
		"created_at":           rec.CreatedAt,
		"updated_at":           rec.UpdatedAt,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	unlock := s.lockSession(id)
	defer unlock()
	if err := s.sessions.Evict(r.Context(), id); err != nil {
		writeAPIError(w, storeError("session", id, err))
		return
	}
	s.log.Info("onboarding session evicted", "session_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session_id": id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeAPIError(w, storeError("session", id, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"session_id":  id,
		"is_complete": rec.Complete,
		"db_export":   onboarding.FormatExport(rec.Session.Data),
	})
}

// handleMetabolicProfile computes a profile from explicit fields. The body
// is validated like an extraction, so "180 lbs" and "male" synonyms work.
func (s *Server) handleMetabolicProfile(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeAPIError(w, validationJSONError(err))
		return
	}
	var candidate map[string]any
	if err := decodeJSONBytes(blob, &candidate); err != nil {
		writeAPIError(w, validationJSONError(err))
		return
	}
	profileID, _ := candidate["profile_id"].(string)
	profileID = strings.TrimSpace(profileID)

	data := onboarding.CollectedData{Fields: onboarding.Validate(candidate)}
	if missing := data.MissingForProfile(); len(missing) > 0 {
		writeAPIError(w, missingFieldsError(missing))
		return
	}
	if data.TargetSpeed == "" {
		data.TargetSpeed = onboarding.SpeedNormal
	}
	profile := onboarding.Compute(data.MetabolicInput(s.now()))
	data.MetabolicProfile = &profile
	export := onboarding.FormatExport(data)

	payload := map[string]any{
		"ok":                true,
		"metabolic_profile": profile,
		"db_export":         export,
	}
	if profileID != "" {
		if s.profiles == nil {
			writeAPIError(w, newError(CodeUnavailable, "profile storage is not configured", false))
			return
		}
		if err := s.profiles.SaveProfile(r.Context(), profileID, export); err != nil {
			writeAPIError(w, storeError("profile", profileID, err))
			return
		}
		payload["profile_id"] = profileID
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/profiles/"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if s.profiles == nil {
		writeAPIError(w, notFoundError("profile", id))
		return
	}
	export, err := s.profiles.GetProfile(r.Context(), id)
	if err != nil {
		writeAPIError(w, storeError("profile", id, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "profile_id": id, "db_export": export})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": s.now().UTC().Format(time.RFC3339)})
}
