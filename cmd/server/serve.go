package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harrylevesque/nutritrack/internal/api"
	"github.com/harrylevesque/nutritrack/internal/auth"
	"github.com/harrylevesque/nutritrack/internal/certs"
	"github.com/harrylevesque/nutritrack/internal/config"
	"github.com/harrylevesque/nutritrack/internal/crypto"
	"github.com/harrylevesque/nutritrack/internal/events"
	"github.com/harrylevesque/nutritrack/internal/logging"
	"github.com/harrylevesque/nutritrack/internal/metrics"
)

const (
	sessionSweepInterval = time.Hour
	certExpiryWarning    = 14 * 24 * time.Hour
)

func serve(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setup(configPath)
	if err != nil {
		return err
	}
	defer e.close()
	cfg, log := e.cfg, e.log

	masterKey, err := crypto.ReadMasterKey(cfg.Auth.MasterKeyFile)
	if err != nil {
		return err
	}

	if cfg.Storage.SeedFoods {
		n, err := e.store.Seed(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("seeded food catalogue", zap.Int("foods", n))
		}
	}

	authSvc, err := auth.NewService(e.store, masterKey, cfg.Auth.SessionTTL, cfg.Auth.AdminEmails)
	if err != nil {
		return err
	}

	pub, err := events.New(cfg.Events.NATSURL, log)
	if err != nil {
		return err
	}
	defer pub.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	srv := api.NewServer(api.Deps{
		Store:   e.store,
		Auth:    authSvc,
		Events:  pub,
		Metrics: m,
		Logger:  log,
	}, api.Options{Version: Version, AllowedOrigins: cfg.Server.AllowedOrigins})

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Named("http")),
	}

	var cm *certs.CertManager
	if cfg.Server.TLS() {
		if cm, err = certs.NewCertManager(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile); err != nil {
			return err
		}
		httpSrv.TLSConfig = cm.TLSConfig()
		checkCertExpiry(log, cm)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.String("addr", httpSrv.Addr),
			zap.Bool("tls", cm != nil),
			zap.String("environment", cfg.Environment),
			zap.String("version", Version))
		var err error
		if cm != nil {
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			if cm != nil {
				if err := cm.Reload(); err != nil {
					log.Warn("certificate reload failed", zap.Error(err))
				} else {
					checkCertExpiry(log, cm)
				}
			}
			if err := logging.SetLevel(e.level, next.Logging.Level); err != nil {
				log.Warn("config reload: invalid log level", zap.Error(err))
				return
			}
			log.Info("config reloaded", zap.String("log_level", next.Logging.Level))
		}, func(err error) {
			log.Warn("config reload failed", zap.Error(err))
		})
		if err != nil {
			log.Warn("config watch disabled", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(sessionSweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				n, err := e.store.DeleteExpiredSessions(ctx)
				if err != nil {
					log.Warn("session sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Debug("expired sessions removed", zap.Int64("sessions", n))
				}
			}
		}
	})
	return g.Wait()
}

func checkCertExpiry(log *zap.Logger, cm *certs.CertManager) {
	leaf := cm.Certificate()
	now := time.Now()
	switch {
	case cm.IsExpired(now):
		log.Error("TLS certificate has expired", zap.Time("not_after", leaf.NotAfter))
	case cm.ExpiresWithin(certExpiryWarning, now):
		log.Warn("TLS certificate expires soon", zap.Time("not_after", leaf.NotAfter))
	}
}
