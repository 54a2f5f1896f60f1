package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/nutriwheel/internal/journal"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/session"
)

type AppDeps struct {
	Session *session.Session
	Profile *profile.Manager
	Journal *journal.Service // optional; meal routes answer 503 without it
	Strings menu.UIStrings
	Token   string
	Version string
	// Advisor names the active chat backend; empty when disabled.
	Advisor string
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Advisor string `json:"advisor"`
	Journal bool   `json:"journal"`
}

// SelectionResponse is the body of GET /selection.
type SelectionResponse struct {
	Selection menu.Selection         `json:"selection"`
	Spinning  map[menu.Category]bool `json:"spinning"`
	Revision  uint64                 `json:"revision"`
}

// SaveMealRequest is the body of POST /meals.
type SaveMealRequest struct {
	Note string `json:"note"`
	// SkipAnalysis saves without the current analysis even when one is ready.
	SkipAnalysis bool `json:"skip_analysis"`
}

// SaveMealResponse is the body returned after saving a meal.
type SaveMealResponse struct {
	Entry    journal.Entry     `json:"entry"`
	Feedback []journal.Message `json:"feedback"`
}

// NewAppHandler returns the HTTP API. Everything except /health requires
// the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/catalog", handleGetCatalog(deps))
		r.Put("/catalog", handlePutCatalog(deps))
		r.Post("/catalog/regenerate", handleRegenerate(deps))

		r.Get("/selection", handleGetSelection(deps))
		r.Put("/selection/{category}", handleSelect(deps))
		r.Post("/spin", handleSpinAll(deps))
		r.Post("/spin/{category}", handleSpin(deps))

		r.Get("/analysis", handleGetAnalysis(deps))
		r.Post("/analysis", handleAnalyze(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Patch("/profile", handlePatchProfile(deps))
		r.Get("/strings", handleStrings(deps))

		r.Route("/meals", func(r chi.Router) {
			r.Use(requireJournal(deps))
			r.Post("/", handleSaveMeal(deps))
			r.Get("/", handleListMeals(deps))
			r.Get("/{id}", handleGetMeal(deps))
			r.Delete("/{id}", handleDeleteMeal(deps))
		})
		r.With(requireJournal(deps)).Get("/stats", handleStats(deps))

		r.Get("/ws", handleEvents(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: deps.Version,
			Advisor: deps.Advisor,
			Journal: deps.Journal != nil,
		})
	}
}

func requireJournal(deps AppDeps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if deps.Journal == nil {
				httpError(w, http.StatusServiceUnavailable, "unavailable", "meal journal is disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleGetCatalog(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Catalog())
	}
}

// handlePutCatalog imports a catalog sent as JSON, or YAML when the
// Content-Type says so.
func handlePutCatalog(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}
		c, err := decodeCatalog(raw, r.Header.Get("Content-Type"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid catalog: %v", err)
			return
		}
		if err := deps.Session.SetCatalog(c); err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Session.Catalog())
	}
}

func decodeCatalog(raw []byte, contentType string) (menu.Catalog, error) {
	var c menu.Catalog
	if strings.Contains(contentType, "yaml") {
		err := yaml.Unmarshal(raw, &c)
		return c, err
	}
	err := json.Unmarshal(raw, &c)
	return c, err
}

func handleRegenerate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Session.Regenerate(r.Context())
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleGetSelection(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := deps.Session.Snapshot()
		writeJSON(w, http.StatusOK, SelectionResponse{
			Selection: st.Selection,
			Spinning:  st.Spinning,
			Revision:  st.Revision,
		})
	}
}

func handleSelect(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := menu.ParseCategory(chi.URLParam(r, "category"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "body must be {\"id\": \"...\"}")
			return
		}
		item, err := deps.Session.Select(cat, body.ID)
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func handleSpinAll(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.SpinAll()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "spinning"})
	}
}

// handleSpin starts one category. With ?wait=true it responds with the
// final frame once the wheel lands.
func handleSpin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := menu.ParseCategory(chi.URLParam(r, "category"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		if r.URL.Query().Get("wait") == "true" {
			f, err := deps.Session.SpinAndWait(r.Context(), cat)
			if err != nil {
				domainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, f)
			return
		}

		if !deps.Session.Spin(cat) {
			if deps.Session.Engine().IsSpinning(cat) {
				httpError(w, http.StatusConflict, "busy", "%s is already spinning", cat)
				return
			}
			httpError(w, http.StatusConflict, "empty_category", "%s has no items", cat)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "spinning", "category": string(cat)})
	}
}

func handleGetAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Analysis())
	}
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Reply with this request's critique even if the selection has
		// moved on since.
		a, err := deps.Session.Analyze(r.Context())
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session.Ready(a))
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profile.GetProfile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handlePatchProfile applies each field of a flat JSON object. Fields are
// applied in profile.Keys order and the first invalid one stops the update.
func handlePatchProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		for key := range fields {
			if !isProfileKey(key) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown profile key %q", key)
				return
			}
		}
		for _, key := range profile.Keys {
			value, ok := fields[key]
			if !ok {
				continue
			}
			if err := deps.Profile.SetField(key, fmt.Sprint(value)); err != nil {
				domainError(w, err)
				return
			}
		}

		p, err := deps.Profile.GetProfile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func isProfileKey(k string) bool {
	for _, key := range profile.Keys {
		if key == k {
			return true
		}
	}
	return false
}

func handleStrings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Strings)
	}
}

func handleSaveMeal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req SaveMealRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
		}

		st := deps.Session.Snapshot()
		d := journal.Draft{Selection: st.Selection, CatalogVersion: st.Catalog.Version, Note: req.Note}
		if !req.SkipAnalysis && st.Analysis.Status == session.AnalysisReady {
			d.Analysis = st.Analysis.Result
		}
		e, err := deps.Journal.Save(r.Context(), d)
		if err != nil {
			domainError(w, err)
			return
		}

		p, err := deps.Profile.GetProfile()
		if err != nil {
			slog.Warn("loading profile for feedback failed", "error", err)
			p = profile.Default()
		}
		writeJSON(w, http.StatusCreated, SaveMealResponse{
			Entry:    e,
			Feedback: journal.Feedback(e.Meal, p, deps.Strings, nil),
		})
	}
}

func handleListMeals(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Journal.List(parseIntParam(r, "limit", 20, 200))
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleGetMeal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := deps.Journal.Get(chi.URLParam(r, "id"))
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleDeleteMeal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Journal.Delete(chi.URLParam(r, "id")); err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Journal.Stats(parseIntParam(r, "days", 0, 3650))
		if err != nil {
			domainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
