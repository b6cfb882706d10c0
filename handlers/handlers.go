package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"shelfmatch/models"
	"shelfmatch/navigation"

	"github.com/gorilla/mux"
)

const maxRequestBody = 8 << 20

type Handlers struct {
	extractor navigation.Extractor
	matcher   navigation.Matcher
	catalog   navigation.CatalogProvider
	sessions  *navigation.Manager
}

func NewHandlers(extractor navigation.Extractor, matcher navigation.Matcher, catalog navigation.CatalogProvider, sessions *navigation.Manager) *Handlers {
	return &Handlers{
		extractor: extractor,
		matcher:   matcher,
		catalog:   catalog,
		sessions:  sessions,
	}
}

// Register mounts every route on the router
func (h *Handlers) Register(r *mux.Router, api *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api.HandleFunc("/extract", h.ExtractPage).Methods("POST")
	api.HandleFunc("/match", h.MatchPage).Methods("POST")
	api.HandleFunc("/catalog", h.GetCatalog).Methods("GET")

	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.CloseSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/page", h.SessionPage).Methods("POST")
	api.HandleFunc("/sessions/{id}/location", h.SessionLocation).Methods("POST")
	api.HandleFunc("/sessions/{id}/heartbeat", h.SessionHeartbeat).Methods("POST")
	api.HandleFunc("/sessions/{id}/dismiss", h.SessionDismiss).Methods("POST")
	api.HandleFunc("/sessions/{id}/modal", h.SessionModal).Methods("POST")
	api.HandleFunc("/sessions/{id}/triggers", h.SessionTriggers).Methods("GET")
}

// PageRequest carries what the extension saw
type PageRequest struct {
	URL    string `json:"url"`
	Markup string `json:"markup"`
}

type extractResponse struct {
	Identity models.PageIdentity `json:"identity"`
	Facts    models.PageFacts    `json:"facts"`
	Noise    bool                `json:"noise"`
}

type matchResponse struct {
	Identity models.PageIdentity      `json:"identity"`
	Facts    models.PageFacts         `json:"facts"`
	Domains  []string                 `json:"domains"`
	Matches  []models.ScoredCandidate `json:"matches"`
	Scored   []models.ScoredCandidate `json:"scored,omitempty"`
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "shelfmatch",
		"version":   "1.0.0",
		"sessions":  h.sessions.Len(),
	}
	writeJSON(w, http.StatusOK, response)
}

// ExtractPage returns the page facts for a url and its markup
func (h *Handlers) ExtractPage(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePageRequest(w, r, true)
	if !ok {
		return
	}

	identity := models.NewPageIdentity(req.URL)
	facts := h.readPage(r.Context(), identity, req.Markup)
	writeJSON(w, http.StatusOK, extractResponse{Identity: identity, Facts: facts, Noise: facts.Noise})
}

// MatchPage extracts the page and ranks catalog alternatives for it
func (h *Handlers) MatchPage(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePageRequest(w, r, true)
	if !ok {
		return
	}

	identity := models.NewPageIdentity(req.URL)
	facts := h.readPage(r.Context(), identity, req.Markup)

	result := models.MatchResult{Domains: []string{}, Matches: []models.ScoredCandidate{}}
	if !facts.Noise {
		snapshot, err := h.catalog.Catalog(r.Context())
		if err != nil {
			log.Printf("❌ Catalog unavailable for match of %s: %v", identity.URL, err)
		} else {
			result = h.matcher.Match(&facts, identity, snapshot.Entries)
		}
	}

	response := matchResponse{
		Identity: identity,
		Facts:    facts,
		Domains:  result.Domains,
		Matches:  result.Matches,
	}
	if debug := r.URL.Query().Get("debug"); debug == "1" || debug == "true" {
		response.Scored = result.Scored
	}
	writeJSON(w, http.StatusOK, response)
}

// GetCatalog reports the loaded catalog
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.catalog.Catalog(r.Context())
	if err != nil {
		log.Printf("❌ Catalog unavailable: %v", err)
		writeError(w, http.StatusServiceUnavailable, "Catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(snapshot.Entries),
		"source": snapshot.Source,
	})
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": session.ID()})
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	snapshot, err := session.Snapshot(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(mux.Vars(r)["id"]); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionPage reports a full page load or a DOM snapshot
func (h *Handlers) SessionPage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	req, ok := decodePageRequest(w, r, false)
	if !ok {
		return
	}
	h.accepted(w, session.PageLoaded(req.URL, req.Markup))
}

// SessionLocation reports an in-page history mutation
func (h *Handlers) SessionLocation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	req, ok := decodePageRequest(w, r, false)
	if !ok {
		return
	}
	h.accepted(w, session.LocationChanged(req.URL))
}

// SessionHeartbeat reports the current location without claiming a navigation
func (h *Handlers) SessionHeartbeat(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	req, ok := decodePageRequest(w, r, false)
	if !ok {
		return
	}
	h.accepted(w, session.Observe(req.URL))
}

func (h *Handlers) SessionDismiss(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.accepted(w, session.Dismiss())
}

func (h *Handlers) SessionModal(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.accepted(w, session.OpenModal())
}

// SessionTriggers drains the UI triggers queued for the session
func (h *Handlers) SessionTriggers(w http.ResponseWriter, r *http.Request) {
	triggers, err := h.sessions.Drain(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triggers": triggers})
}

// readPage extracts facts, fetching the markup when the caller sent none.
// Failures produce empty facts; they never reach the caller as errors.
func (h *Handlers) readPage(ctx context.Context, identity models.PageIdentity, markup string) models.PageFacts {
	if markup == "" {
		fetched, err := h.extractor.FetchMarkup(ctx, identity.URL)
		if err != nil {
			log.Printf("⚠️ Could not fetch %s: %v", identity.URL, err)
		}
		markup = fetched
	}

	facts, err := h.extractor.Extract(ctx, identity, markup)
	if err != nil && !errors.Is(err, models.ErrNoiseDetected) {
		log.Printf("⚠️ Extraction failed for %s: %v", identity.URL, err)
	}
	return facts
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*navigation.Session, bool) {
	session, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (h *Handlers) accepted(w http.ResponseWriter, err error) {
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func decodePageRequest(w http.ResponseWriter, r *http.Request, needsMarkup bool) (PageRequest, bool) {
	var req PageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}

	req.URL = strings.TrimSpace(req.URL)
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		writeError(w, http.StatusBadRequest, "An absolute url is required")
		return req, false
	}
	if needsMarkup && len(req.Markup) == 0 && models.ItemIDFromURL(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "Markup is required for pages without an item id")
		return req, false
	}
	return req, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrSessionClosed):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		log.Printf("❌ Session request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Session request failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
