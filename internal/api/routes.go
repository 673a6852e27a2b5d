// Package api provides HTTP handlers for the clusterer server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atlasmap-sc/clusterer/internal/cache"
	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/internal/render"
	"github.com/atlasmap-sc/clusterer/internal/service"
	"github.com/atlasmap-sc/clusterer/pkg/colormap"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// maxBodyBytes caps uploaded feature collections.
const maxBodyBytes = 64 << 20

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *SessionRegistry
	CORSOrigins []string
	Cache       *cache.Manager
	Renderer    *render.IconRenderer
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/api/info", infoHandler(cfg.Registry, cfg.Cache))
	r.Get("/api/icons/{index}.png", iconHandler(cfg.Registry, cfg.Renderer, cfg.Cache))

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", listSessionsHandler(cfg.Registry))
		r.Post("/", createSessionHandler(cfg.Registry))

		r.Route("/{session}", func(r chi.Router) {
			r.Use(sessionMiddleware(cfg.Registry))

			r.Get("/", sessionStatsHandler)
			r.Delete("/", deleteSessionHandler(cfg.Registry))
			r.Post("/features", addFeaturesHandler)
			r.Delete("/features/{feature}", removeFeatureHandler)
			r.Get("/clusters", clustersHandler)
			r.Get("/clusters/{cluster}/bounds", clusterBoundsHandler)
			r.Get("/bounds", boundsHandler)
		})
	})

	return r
}

// Context key for the session service
type ctxKey string

const sessionServiceKey ctxKey = "sessionService"

// sessionMiddleware resolves the session from the URL and injects it into
// the context.
func sessionMiddleware(registry *SessionRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "session")
			svc, err := registry.Get(id)
			if err != nil {
				http.Error(w, "session not found: "+id, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), sessionServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getSession(r *http.Request) *service.ClusterService {
	if svc, ok := r.Context().Value(sessionServiceKey).(*service.ClusterService); ok {
		return svc
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

// writeError maps service errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidViewport):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrFeatureNotFound),
		errors.Is(err, service.ErrClusterNotFound),
		errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSessionClosed):
		status = http.StatusGone
	}
	http.Error(w, err.Error(), status)
}

type boundsResponse struct {
	Empty bool    `json:"empty"`
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

func newBoundsResponse(b geo.Bounds) boundsResponse {
	if b.IsEmpty() {
		return boundsResponse{Empty: true}
	}
	return boundsResponse{West: b.West(), South: b.South(), East: b.East(), North: b.North()}
}

// infoHandler returns the server title, engine defaults and cache stats.
func infoHandler(registry *SessionRegistry, cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng := registry.Engine()
		response := map[string]interface{}{
			"title":     registry.Title(),
			"sessions":  registry.Len(),
			"colormaps": colormap.Names(),
			"cluster": map[string]interface{}{
				"grid_size":        eng.GridSize,
				"min_zoom":         eng.MinZoom,
				"max_zoom":         eng.MaxZoom,
				"min_cluster_size": eng.MinClusterSize,
				"average_center":   eng.AverageCenter,
				"zoom_on_click":    eng.ZoomOnClick,
				"styles":           engineStyles(registry),
			},
		}
		if cm != nil {
			response["cache"] = cm.Stats()
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func engineStyles(registry *SessionRegistry) []cluster.Style {
	eng := registry.Engine()
	if len(eng.Styles) > 0 {
		return eng.Styles
	}
	return cluster.DefaultStyles(eng.ImagePath, eng.ImageExtension)
}

func listSessionsHandler(registry *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": registry.Sessions(),
		})
	}
}

// createSessionHandler opens a session. A non-empty body is loaded as the
// initial feature collection.
func createSessionHandler(registry *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
			return
		}

		svc, err := registry.Create()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		loaded := 0
		if len(strings.TrimSpace(string(body))) > 0 {
			loaded, err = svc.Load(body)
			if err != nil {
				registry.Delete(svc.ID())
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":       svc.ID(),
			"features": loaded,
		})
	}
}

func deleteSessionHandler(registry *SessionRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Delete(chi.URLParam(r, "session")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, getSession(r).Stats())
}

func addFeaturesHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSession(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	n, err := svc.Load(body)
	if err != nil {
		if errors.Is(err, service.ErrSessionClosed) {
			writeError(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"added": n})
}

func removeFeatureHandler(w http.ResponseWriter, r *http.Request) {
	if err := getSession(r).RemoveFeature(chi.URLParam(r, "feature")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clustersHandler returns the clusters and individual features of a
// viewport as GeoJSON.
func clustersHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseViewport(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := getSession(r).Viewport(req)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func parseViewport(r *http.Request) (service.ViewportRequest, error) {
	q := r.URL.Query()
	var req service.ViewportRequest
	var err error

	floats := []struct {
		name     string
		dst      *float64
		required bool
	}{
		{"lng", &req.Lng, true},
		{"lat", &req.Lat, true},
		{"zoom", &req.Zoom, true},
	}
	for _, f := range floats {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			if f.required {
				return req, fmt.Errorf("missing required query param: %s", f.name)
			}
			continue
		}
		if *f.dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return req, fmt.Errorf("invalid %s: %q", f.name, raw)
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"width", &req.Width},
		{"height", &req.Height},
	}
	for _, f := range ints {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		if *f.dst, err = strconv.Atoi(raw); err != nil {
			return req, fmt.Errorf("invalid %s: %q", f.name, raw)
		}
	}
	return req, nil
}

func clusterBoundsHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "cluster")
	// accept both "12" and "cluster-12"
	if i := strings.LastIndex(raw, "-"); i >= 0 {
		raw = raw[i+1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid cluster id", http.StatusBadRequest)
		return
	}

	b, err := getSession(r).ClusterBounds(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBoundsResponse(b))
}

func boundsHandler(w http.ResponseWriter, r *http.Request) {
	b, err := getSession(r).Bounds()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBoundsResponse(b))
}

// iconHandler renders the icon of a 1-based style index.
func iconHandler(registry *SessionRegistry, renderer *render.IconRenderer, cm *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if renderer == nil {
			http.Error(w, "icon rendering disabled", http.StatusNotFound)
			return
		}
		styles := engineStyles(registry)
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 1 || index > len(styles) {
			http.Error(w, "invalid style index", http.StatusBadRequest)
			return
		}
		text := r.URL.Query().Get("text")
		if len(text) > 16 {
			http.Error(w, "text too long", http.StatusBadRequest)
			return
		}
		cmap := r.URL.Query().Get("colormap")
		if cmap == "" {
			cmap = renderer.Colormap()
		}

		key := cache.IconKey(index, text, cmap)
		if cm != nil {
			if data, ok := cm.GetIcon(key); ok {
				writePNG(w, data)
				return
			}
		}

		data, err := renderer.RenderIcon(styles[index-1], index-1, len(styles), text, cmap)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if cm != nil {
			if err := cm.SetIcon(key, data); err != nil {
				log.Printf("[API] failed to cache icon %s: %v", key, err)
			}
		}
		writePNG(w, data)
	}
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
