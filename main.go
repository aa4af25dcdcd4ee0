package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/SkillsGen/trainers/auth"
	"github.com/SkillsGen/trainers/config"
	"github.com/SkillsGen/trainers/db"
	"github.com/SkillsGen/trainers/handlers"
	applog "github.com/SkillsGen/trainers/logger"
	mw "github.com/SkillsGen/trainers/middleware"
	"github.com/SkillsGen/trainers/query"
	"github.com/SkillsGen/trainers/schedule"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg, logger)
	defer bdb.Close()

	if err := db.CreateTables(context.Background(), bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	runner := query.New(bdb, query.WithLogger(logger.Named("query")), query.WithTimeout(cfg.DBTimeout))
	loc := cfg.Location()

	sessionKey := []byte(cfg.SessionSecret)
	if len(sessionKey) == 0 {
		// Debug only: sessions do not survive a restart.
		sessionKey = securecookie.GenerateRandomKey(32)
	}
	sessions := mw.NewFilesystemSessions(cfg.SessionDir, cfg.SessionMaxAge, !cfg.Debug, logger.Named("session"), sessionKey)

	h := handlers.New(handlers.Deps{
		Runner:   runner,
		Store:    bdb,
		Sessions: sessions,
		Schedule: schedule.New(runner, schedule.WithLocation(loc), schedule.WithBatch(cfg.ScheduleBatch)),
		Auth:     auth.New(runner, auth.Bcrypt, logger.Named("auth")),
		JWTKey:   cfg.JWTKey(),
		Location: loc,
		Logger:   logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency),
			}
			if id, ok := mw.IdentityFrom(c.Request().Context()); ok {
				fields = append(fields, zap.Int64("trainer_id", id))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	if cfg.CSRFKey != "" {
		e.Use(mw.CSRF([]byte(cfg.CSRFKey), cfg.Debug))
	}
	e.Use(sessions.Load())

	h.Register(e)

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		if err := e.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// ACME http-01 challenges and the http -> https redirect.
	go func() {
		if err := http.ListenAndServe(":80", autoTLS.HTTPHandler(nil)); err != nil {
			logger.Error("acme http listener exited", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}
