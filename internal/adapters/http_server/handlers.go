// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/poller"
)

const refreshLink = "/v1/dashboard/refresh"

type Handlers struct {
	Dash    *app.DashboardService
	Actions *app.ActionService
	Session *app.Session
	Now     func() time.Time
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Retry  string `json:"retry,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.Now == nil {
		h.Now = time.Now
	}
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
		r.Post("/dashboard/refresh", h.refresh)
		r.Get("/reviews", h.reviews)
		r.Get("/reviews/pending", h.pending)
		r.Get("/reviews/{id}", h.review)
		r.Post("/reviews/{id}/regenerate-reply", h.regenerateReply)
		r.Get("/keywords", h.keywords)
		r.Get("/customers", h.customers)
		r.Get("/customers/stories", h.stories)
		r.Get("/analysis", h.analysis)
		r.Get("/trend", h.trend)
		r.Get("/stats/history", h.history)
		r.Post("/actions/scrape", h.scrape)
		r.Post("/actions/generate-replies", h.generateReplies)
		r.Get("/logs", h.logs)
		r.Get("/session", h.session)
		r.Post("/session", h.startSession)
		r.Post("/session/replay", h.replaySession)
	})
}

/********** responses **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemRetry(w, status, title, detail, "")
}

func writeProblemRetry(w http.ResponseWriter, status int, title, detail, retry string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Retry: retry}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers GETs with an ETag and honors If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "response encoding failed")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// writeErr collapses backend failures into the one message users see.
func (h *Handlers) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrUnavailable):
		w.Header().Set("Retry-After", "5")
		if st := h.Dash.State(); st.Loading && st.Err == "" {
			writeProblemRetry(w, http.StatusServiceUnavailable, "Loading", "data is loading", refreshLink)
			return
		}
		writeProblemRetry(w, http.StatusServiceUnavailable, "Service Unavailable", poller.GenericError, refreshLink)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the caller stopped waiting; the cycle itself keeps running
		writeProblemRetry(w, http.StatusServiceUnavailable, "Loading", "data is loading", refreshLink)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, app.ErrNoArchive):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("backend request failed")
		writeProblemRetry(w, http.StatusBadGateway, "Bad Gateway", poller.GenericError, refreshLink)
	}
}

/********** query parsing **********/

// intParam returns def when absent; ok is false when present but outside [min, max].
func intParam(r *http.Request, key string, def, min, max int) (int, bool) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}

func sentimentParam(r *http.Request) (domain.Sentiment, bool) {
	s := strings.TrimSpace(r.URL.Query().Get("sentiment"))
	if s == "" || strings.EqualFold(s, "all") {
		return domain.SentimentUnset, true
	}
	v := domain.ParseSentiment(s)
	return v, v != domain.SentimentUnset
}

func typeParam(r *http.Request, allowed ...domain.CustomerType) (domain.CustomerType, bool) {
	s := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if s == "" || s == "all" {
		return "", true
	}
	for _, a := range allowed {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

/********** snapshot views **********/

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	v, err := h.Dash.Dashboard()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	st, err := h.Dash.Refresh(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	st.Data = nil
	writeJSON(w, r, http.StatusOK, st)
}

func (h *Handlers) reviews(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Dash.Reviews()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rs)
}

func (h *Handlers) pending(w http.ResponseWriter, r *http.Request) {
	v, err := h.Dash.Pending()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) keywords(w http.ResponseWriter, r *http.Request) {
	sent, ok := sentimentParam(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid sentiment", "sentiment must be positive, negative, neutral or all")
		return
	}
	limit, ok := intParam(r, "limit", 0, 0, 1000)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 0 and 1000")
		return
	}
	v, err := h.Dash.Keywords(r.URL.Query().Get("q"), sent, limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) customers(w http.ResponseWriter, r *http.Request) {
	seg, ok := typeParam(r, domain.CustomerNormal, domain.CustomerLoyal, domain.CustomerBlacklist)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid type", "type must be normal, loyal, blacklist or all")
		return
	}
	v, err := h.Dash.Customers(r.URL.Query().Get("q"), seg)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) stories(w http.ResponseWriter, r *http.Request) {
	kind, ok := typeParam(r, domain.CustomerNormal, domain.CustomerLoyal, domain.CustomerVIP, domain.CustomerBlacklist)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid type", "type must be normal, loyal, vip, blacklist or all")
		return
	}
	v, err := h.Dash.Stories(kind)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) analysis(w http.ResponseWriter, r *http.Request) {
	v, err := h.Dash.Analysis()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) trend(w http.ResponseWriter, r *http.Request) {
	v, err := h.Dash.Trend()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", app.DefaultLogLimit, 1, 1000)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
		return
	}
	v, err := h.Dash.History(r.Context(), limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

/********** backend passthrough and actions **********/

func (h *Handlers) review(w http.ResponseWriter, r *http.Request) {
	v, err := h.Actions.Review(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) regenerateReply(w http.ResponseWriter, r *http.Request) {
	v, err := h.Actions.RegenerateReply(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, v)
}

func (h *Handlers) scrape(w http.ResponseWriter, r *http.Request) {
	v, err := h.Actions.Scrape(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, v)
}

func (h *Handlers) generateReplies(w http.ResponseWriter, r *http.Request) {
	n, ok := intParam(r, "max_count", app.DefaultMaxReplies, 1, 100)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid max_count", "max_count must be an integer between 1 and 100")
		return
	}
	v, err := h.Actions.GenerateReplies(r.Context(), n)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, v)
}

func (h *Handlers) logs(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", app.DefaultLogLimit, 1, 500)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
		return
	}
	v, err := h.Actions.Logs(r.Context(), limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

/********** session **********/

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Session.State())
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Session.Start(h.Now()))
}

func (h *Handlers) replaySession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Session.Replay())
}
