// Package api is the NutriTrack REST API.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/events"
	"github.com/harrylevesque/nutritrack/internal/metrics"
	"github.com/harrylevesque/nutritrack/internal/models"
	"github.com/harrylevesque/nutritrack/internal/storage"
)

// Deps are the collaborators of a Server. Events and Metrics are optional.
type Deps struct {
	Store   *storage.Store
	Auth    *auth.Service
	Events  events.Publisher
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Options struct {
	Version        string
	AllowedOrigins []string
}

type Server struct {
	store   *storage.Store
	auth    *auth.Service
	events  events.Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	opts    Options
	now     func() time.Time
}

func NewServer(d Deps, opts Options) *Server {
	s := &Server{
		store:   d.Store,
		auth:    d.Auth,
		events:  d.Events,
		metrics: d.Metrics,
		log:     d.Logger,
		opts:    opts,
		now:     time.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.opts.Version == "" {
		s.opts.Version = "dev"
	}
	return s
}

// Handler returns the full middleware chain around the router. CORS sits
// outside the router so preflight requests never reach route matching, and
// panics are recovered inside requestLogger so they are logged and counted.
func (s *Server) Handler() http.Handler {
	return s.cors(s.requestLogger(s.recoverer(s.NewRouter())))
}

// today is the current calendar date in UTC.
func (s *Server) today() string { return s.now().UTC().Format(models.DateLayout) }

// publish sends an event without failing the request.
func (s *Server) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.Warn("event publish failed",
			zap.String("subject", subject),
			zap.String("request_id", RequestID(ctx)),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.EventPublishFailed()
		}
	}
}

func (s *Server) publishLogs(ctx context.Context, userID string, logs ...*models.DailyLog) {
	for _, l := range logs {
		s.publish(ctx, events.SubjectDailyLogUpdated, events.DailyLogEvent{
			UserID: userID, Log: l, OccurredAt: s.now().UTC(),
		})
	}
}
