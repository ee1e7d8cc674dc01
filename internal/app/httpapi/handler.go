// Package httpapi exposes the consumer-facing REST surface: interactive
// search and lookup for the editor, the resolve endpoint for rendering, and
// registry administration.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	app "github.com/technophere/applinks/internal/app"
	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/app/metrics"
)

// handler bundles the HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/search", h.search)
	mux.HandleFunc("/lookup", h.lookup)
	mux.HandleFunc("/resolve", h.resolve)
	mux.HandleFunc("/apps", h.apps)
	mux.HandleFunc("/apps/", h.appResource)
	mux.HandleFunc("/refresh", h.refresh)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("search term is required"))
		return
	}
	// Empty results and upstream failure are indistinguishable by contract.
	results := h.app.GooglePlay.Search(r.Context(), term)
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	store, id, err := storeAndID(r.URL.Query().Get("store"), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := h.app.Resolver.Lookup(r.Context(), store, id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("app not found or fetch failed"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var defaults appmeta.Record
	if err := decodeJSON(r.Body, &defaults); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if defaults.ID == "" || !defaults.Store.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("store and id are required"))
		return
	}
	writeJSON(w, http.StatusOK, h.app.Resolver.Resolve(r.Context(), defaults))
}

func (h *handler) apps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := h.app.Resolver.Registrations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	case http.MethodPost:
		var payload struct {
			Store string `json:"store"`
			ID    string `json:"id"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		store, id, err := storeAndID(payload.Store, payload.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Resolver.Register(r.Context(), store, id); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) appResource(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/apps"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	store, id, err := storeAndID(parts[0], parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Resolver.Unregister(r.Context(), store, id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Resolver.RefreshAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func storeAndID(rawStore, rawID string) (appmeta.Store, string, error) {
	store, err := appmeta.ParseStore(strings.TrimSpace(rawStore))
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(rawID)
	if id == "" {
		return "", "", fmt.Errorf("app id is required")
	}
	return store, id, nil
}

func decodeJSON(r io.Reader, target interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
