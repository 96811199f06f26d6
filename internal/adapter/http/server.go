package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/refresh"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Refresher runs one fetch and render cycle.
type Refresher interface {
	Refresh(ctx context.Context, req refresh.Request) (*refresh.View, error)
}

// Server exposes the tracker page, its JSON API, and the health, readiness,
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	refresher  Refresher
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer builds the router. Refresh routes are rate-limited per client IP
// when cfg.RefreshRateLimit is positive.
func NewServer(cfg config.HTTPConfig, refresher Refresher, ready ReadinessChecker, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		refresher: refresher,
		validate:  newValidator(),
		logger:    logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Handle("/metrics", promhttp.Handler())

	limit := refreshLimit(cfg.RefreshRateLimit)
	r.With(limit).Get("/", s.handlePage)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		api.Get("/regions", s.handleRegions)
		api.With(limit).Get("/states", s.handleStates)
	})

	return s
}

func refreshLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(perMinute, time.Minute)
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": domain.DefaultRegion,
		"regions": domain.Regions(),
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	view, err := s.refresher.Refresh(r.Context(), req)
	if errors.Is(err, refresh.ErrRefreshInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		s.logger.Debug("invalid page parameters, using defaults", "error", err)
		world, _ := domain.LookupRegion(domain.DefaultRegion)
		req = refresh.Request{Region: world}
	}

	data := newPageData(req)
	status := http.StatusOK

	view, err := s.refresher.Refresh(r.Context(), req)
	switch {
	case errors.Is(err, refresh.ErrRefreshInProgress):
		status = http.StatusConflict
		data.Notice = "A refresh is already running. Please wait a moment."
	case err != nil:
		s.logger.Error("refresh failed", "error", err)
		status = http.StatusInternalServerError
		data.Notice = refresh.NoticeFailed
	default:
		data.View = view
		data.Notice = view.Notice
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("rendering page failed", "error", err)
	}
}

// stateParams are the query parameters accepted by the refresh routes.
type stateParams struct {
	Region string `validate:"omitempty,region"`
	ICAO24 string `validate:"omitempty,len=6,hexadecimal,excludesall=xX"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.ToLower(f.Name)
	})
	//nolint:errcheck // tag name is static
	v.RegisterValidation("region", func(fl validator.FieldLevel) bool {
		_, ok := domain.LookupRegion(fl.Field().String())
		return ok
	})
	return v
}

func (s *Server) parseRequest(r *http.Request) (refresh.Request, error) {
	q := r.URL.Query()
	p := stateParams{
		Region: strings.ToLower(strings.TrimSpace(q.Get("region"))),
		ICAO24: strings.ToLower(strings.TrimSpace(q.Get("icao24"))),
	}
	if err := s.validate.Struct(p); err != nil {
		return refresh.Request{}, paramError(err)
	}
	if p.Region == "" {
		p.Region = domain.DefaultRegion
	}
	region, _ := domain.LookupRegion(p.Region)
	return refresh.Request{Region: region, ICAO24: p.ICAO24}, nil
}

func paramError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "region":
		return errors.New("invalid region: must be one of " + strings.Join(domain.RegionNames(), ", "))
	case "icao24":
		return errors.New("invalid icao24: must be 6 hexadecimal characters")
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
