// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/config"
	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/version"
)

const apiTimeout = 15 * time.Second

type healthResponse struct {
	Status      string             `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
	Environment config.Environment `json:"environment"`
	Connections int                `json:"connections"`
	OnlineUsers int                `json:"online_users"`
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Health  string `json:"health"`
}

// statsSource is the part of the gateway the HTTP API reads.
type statsSource interface {
	Stats() gateway.Stats
}

func newRouter(stats statsSource, ws http.Handler, environment config.Environment, clk clock.Clock, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	// Upgraded connections outlive any request timeout.
	r.Handle("/ws", ws)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(apiTimeout))

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, rootResponse{
				Message: "TaskFlow Realtime Gateway",
				Version: version.Info(),
				Health:  "/api/health",
			})
		})

		r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
			s := stats.Stats()
			writeJSON(w, http.StatusOK, healthResponse{
				Status:      "ok",
				Timestamp:   clk.Now().UTC(),
				Environment: environment,
				Connections: s.Connections,
				OnlineUsers: s.Users,
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"duration", time.Since(start),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
