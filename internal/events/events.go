// Package events publishes domain events about meals and daily logs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/harrylevesque/nutritrack/internal/models"
)

// Subjects.
const (
	SubjectMealCreated     = "nutritrack.meals.created"
	SubjectMealUpdated     = "nutritrack.meals.updated"
	SubjectMealDeleted     = "nutritrack.meals.deleted"
	SubjectDailyLogUpdated = "nutritrack.dailylogs.updated"
)

// MealEvent is the payload of the meal subjects.
type MealEvent struct {
	UserID     string       `json:"userId"`
	Meal       *models.Meal `json:"meal"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// DailyLogEvent is the payload of SubjectDailyLogUpdated. A log with
// MealCount 0 was removed.
type DailyLogEvent struct {
	UserID     string           `json:"userId"`
	Log        *models.DailyLog `json:"log"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

func (Nop) Close() error { return nil }

// NATS publishes JSON payloads on a NATS connection.
type NATS struct {
	nc  *nats.Conn
	log *zap.Logger
}

// Connect dials url. The connection reconnects on its own after it has been
// established once.
func Connect(url string, logger *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("nutritrack"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{nc: nc, log: logger}, nil
}

func (p *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	return p.nc.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}

// New returns a NATS publisher when url is set and Nop otherwise.
func New(url string, logger *zap.Logger) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return Connect(url, logger)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Subject string
	Payload any
}

func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Payload: payload})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Subjects returns the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Subject
	}
	return out
}
