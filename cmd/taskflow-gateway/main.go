// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

// taskflow-gateway is the TaskFlow realtime gateway. It accepts
// authenticated websocket connections from browsers, fans domain
// events out to topic subscribers, and tracks user presence.
//
// CRUD processes publish events through the ingress socket (see
// ingress.go); browsers connect to /ws. Configuration comes from the
// file named by --config or TASKFLOW_CONFIG, otherwise from defaults
// and the environment (HOST, PORT, FRONTEND_URL, API_URL).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/clock"
	"github.com/yaswanth65/task3Backend/lib/config"
	"github.com/yaswanth65/task3Backend/lib/gateway"
	"github.com/yaswanth65/task3Backend/lib/logging"
	"github.com/yaswanth65/task3Backend/lib/membership"
	"github.com/yaswanth65/task3Backend/lib/process"
	"github.com/yaswanth65/task3Backend/lib/service"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
	"github.com/yaswanth65/task3Backend/lib/version"
	"github.com/yaswanth65/task3Backend/lib/wstransport"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("taskflow-gateway", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "configuration file (YAML, JSON or JSONC); defaults to $TASKFLOW_CONFIG")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return process.Usage(err)
	}
	if *showVersion {
		fmt.Fprintf(stdout, "taskflow-gateway %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Config())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serve wires the components and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	publicKey, err := sessiontoken.LoadPublicKey(cfg.Auth.PublicKeyFile)
	if err != nil {
		return fmt.Errorf("loading token public key: %w", err)
	}
	revocations := sessiontoken.NewRevocations(cfg.Auth.RevocationCapacity, cfg.Auth.TokenTTL())
	realClock := clock.Real()

	gate := authgate.New(authgate.Config{
		PublicKey:   publicKey,
		Audience:    cfg.Auth.Audience,
		Revocations: revocations,
		Clock:       realClock,
		Logger:      logger,
	})

	authorizer, audience, closeMembership, err := openMembership(ctx, cfg.Membership, logger)
	if err != nil {
		return err
	}
	defer closeMembership()

	options := gateway.Options{
		Config:        cfg.Gateway.Config(),
		Authenticator: gate,
		Authorizer:    authorizer,
		Audience:      audience,
		Clock:         realClock,
		Logger:        logger,
	}
	if cfg.Inbound.APIURL != "" {
		options.Inbound = newForwarder(cfg.Inbound.APIURL, []byte(cfg.Inbound.Secret), nil, logger)
	}
	g, err := gateway.New(options)
	if err != nil {
		return err
	}

	ws := wstransport.NewHandler(wstransport.Options{
		Gateway:        g,
		AllowedOrigins: cfg.Server.Origins(),
		Clock:          realClock,
		Logger:         logger,
	})
	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Server.Address,
		Handler:         newRouter(g, ws, cfg.Environment, realClock, logger),
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
		OnShutdown:      []func(){g.Shutdown},
		Logger:          logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 3)
	running := 0
	start := func(name string, serve func(context.Context) error) {
		running++
		go func() {
			err := serve(ctx)
			if err != nil {
				err = fmt.Errorf("%s: %w", name, err)
			}
			errs <- err
		}()
	}

	start("gateway", g.Run)
	start("http", httpServer.Serve)
	if cfg.Server.IngressSocket != "" {
		ingress := service.NewSocketServer(cfg.Server.IngressSocket, logger, &service.AuthConfig{
			PublicKey:   publicKey,
			Audience:    cfg.Auth.IngressAudience,
			Revocations: revocations,
			Clock:       realClock,
		})
		registerIngress(ingress, g, gate, logger)
		start("ingress", ingress.Serve)
	}

	logger.Info("taskflow gateway starting",
		"version", version.Info(),
		"environment", cfg.Environment,
		"address", cfg.Server.Address,
		"ingress_socket", cfg.Server.IngressSocket,
		"membership", cfg.Membership.Mode,
	)

	// Whichever component returns first takes the others down with it.
	var first error
	for range running {
		if err := <-errs; err != nil {
			logger.Error("component failed", "error", err)
			if first == nil {
				first = err
			}
		}
		cancel()
	}
	logger.Info("taskflow gateway stopped")
	return first
}

// openMembership builds the Authorizer for the configured mode. The
// returned audience is nil unless the mode knows who shares work with
// whom.
func openMembership(ctx context.Context, cfg config.MembershipConfig, logger *slog.Logger) (gateway.Authorizer, gateway.PresenceAudience, func(), error) {
	switch cfg.Mode {
	case config.MembershipStatic:
		static, err := membership.LoadStatic(cfg.StaticFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading membership file: %w", err)
		}
		return static, static, func() {}, nil

	case config.MembershipMongo:
		mongo, err := membership.ConnectMongo(ctx, cfg.Mongo.Config(), logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closeMongo := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
			defer cancel()
			if err := mongo.Close(closeCtx); err != nil {
				logger.Warn("closing mongo client", "error", err)
			}
		}
		return mongo, nil, closeMongo, nil
	}
	return membership.Open{}, nil, func() {}, nil
}

const mongoCloseTimeout = 5 * time.Second
