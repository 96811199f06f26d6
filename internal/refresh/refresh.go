package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/but-pixelated/AircraftTracker-Live/internal/presentation"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrRefreshInProgress is returned when a refresh is requested while another one is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// User-facing notices for the degraded display.
const (
	NoticeNoData = "No data available. Please try again later."
	NoticeFailed = "Map loading failed. Please try again."
)

// Refresh results, used as metric labels.
const (
	resultOK          = "ok"
	resultNoData      = "no_data"
	resultRenderError = "render_error"
	resultRejected    = "rejected"
)

// SnapshotSource yields one snapshot per call, retrying internally.
type SnapshotSource interface {
	Fetch(ctx context.Context, q domain.Query) (*domain.Snapshot, error)
}

// Request selects what one refresh fetches.
type Request struct {
	Region domain.Region
	ICAO24 string
}

// View is everything the UI shows after one refresh. A degraded view has an
// empty map and dashboard and carries a notice instead.
type View struct {
	ID           string                 `json:"id"`
	Region       string                 `json:"region"`
	GeneratedAt  time.Time              `json:"generated_at"`
	SnapshotTime int64                  `json:"snapshot_time,omitempty"`
	Map          presentation.MapLayer  `json:"map"`
	Stats        *presentation.Stats    `json:"stats,omitempty"`
	StatsText    string                 `json:"stats_text"`
	Dashboard    presentation.Dashboard `json:"dashboard"`
	Panels       []presentation.Panel   `json:"-"`
	Notice       string                 `json:"notice,omitempty"`
	Degraded     bool                   `json:"degraded"`
}

func (v *View) degrade(notice, statsText string) {
	v.Map = presentation.MapLayer{Heat: []presentation.HeatPoint{}, Markers: []presentation.Marker{}}
	v.Stats = nil
	v.StatsText = statsText
	v.Dashboard = presentation.Dashboard{}
	v.Panels = nil
	v.Notice = notice
	v.Degraded = true
}

// Service runs the fetch, build and render cycle. At most one cycle runs at a time.
type Service struct {
	source SnapshotSource
	bins   int
	clock  clockwork.Clock
	render func(presentation.Dashboard) ([]presentation.Panel, error)

	mu      sync.Mutex
	tracer  trace.Tracer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates a Service. A nil clock uses real time.
func NewService(source SnapshotSource, histogramBins int, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		source:  source,
		bins:    histogramBins,
		clock:   clock,
		render:  presentation.RenderDashboard,
		tracer:  otel.Tracer("github.com/but-pixelated/AircraftTracker-Live/internal/refresh"),
		metrics: metrics,
		logger:  logger,
	}
}

// Refresh runs one cycle. It only returns an error when another refresh is
// already running; every other failure produces a degraded View.
func (s *Service) Refresh(ctx context.Context, req Request) (*View, error) {
	if !s.mu.TryLock() {
		s.metrics.Refreshes.WithLabelValues(resultRejected).Inc()
		return nil, ErrRefreshInProgress
	}
	defer s.mu.Unlock()

	view := &View{ID: uuid.NewString(), Region: req.Region.Name}
	logger := s.logger.With("refresh_id", view.ID, "region", req.Region.Name)

	ctx, span := s.tracer.Start(ctx, "refresh.cycle", trace.WithAttributes(
		attribute.String("refresh.id", view.ID),
		attribute.String("refresh.region", req.Region.Name),
	))
	defer span.End()

	start := s.clock.Now()
	result := s.run(ctx, req, view, logger)
	view.GeneratedAt = s.clock.Now()

	if result != resultOK {
		span.SetStatus(codes.Error, result)
	}
	s.metrics.Refreshes.WithLabelValues(result).Inc()
	s.metrics.RefreshDuration.Observe(s.clock.Since(start).Seconds())
	logger.Info("refresh complete",
		"result", result,
		"aircraft", view.Map.Len(),
		"duration", s.clock.Since(start),
	)
	return view, nil
}

func (s *Service) run(ctx context.Context, req Request, view *View, logger *slog.Logger) string {
	snap, err := s.source.Fetch(ctx, domain.QueryFor(req.Region, req.ICAO24))
	if err != nil {
		logger.Warn("no data after retries", "kind", domain.Classify(err), "error", err)
		view.degrade(NoticeNoData, NoticeNoData)
		return resultNoData
	}

	if err := s.build(view, snap); err != nil {
		logger.Error("building display failed", "error", err)
		view.degrade(NoticeFailed, "Error: "+err.Error())
		return resultRenderError
	}
	return resultOK
}

// build fills view from snap. A panic in any builder is converted to an error.
func (s *Service) build(view *View, snap *domain.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	layer, err := presentation.BuildMapLayer(snap.States)
	if err != nil {
		return err
	}
	stats := presentation.BuildStats(snap.States, s.clock.Now())
	dash := presentation.BuildDashboard(snap.States, s.bins)
	panels, err := s.render(dash)
	if err != nil {
		return err
	}

	view.SnapshotTime = snap.Time
	view.Map = layer
	view.Stats = &stats
	view.StatsText = stats.Text()
	view.Dashboard = dash
	view.Panels = panels
	return nil
}
