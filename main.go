// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/config"
	"github.com/serenacare/serena-api/endpoint"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/server"
	"github.com/serenacare/serena-api/util"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load the configuration
	cfg := config.LoadConfig()
	util.SetupLogger(cfg.LogLevel, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("error connecting to database")
	}
	if err := model.Bootstrap(db, cfg.SeedDemo); err != nil {
		logrus.WithError(err).Fatal("error bootstrapping database")
	}

	rdb, err := config.ConnectRedis(cfg)
	if err != nil {
		// Runs without token revocation and with in-process rate limits.
		logrus.WithError(err).Warn("redis unavailable")
		rdb = nil
	}

	geo, err := util.OpenGeoIP(cfg.GeoIPPath)
	if err != nil {
		logrus.WithError(err).Warn("geoip database unavailable")
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := server.NewRouter(server.Deps{
		Cfg:       cfg,
		DB:        db,
		Redis:     rdb,
		Tokens:    util.NewTokenService(cfg.JWTSecret, cfg.JWTExpire),
		Revoker:   util.NewTokenRevoker(rdb),
		Audit:     util.NewSecurityLogger(db, geo),
		Assembler: endpoint.NewReportAssembler(),
		Log:       logrus.StandardLogger(),
	})
	srv := server.NewHTTPServer(cfg, router)

	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("error starting server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("forced shutdown")
	}

	if err := config.CloseDatabase(db); err != nil {
		logrus.WithError(err).Warn("error closing database")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Warn("error closing redis")
		}
	}
	if err := geo.Close(); err != nil {
		logrus.WithError(err).Warn("error closing geoip database")
	}
}
