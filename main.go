package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auragold-backend/config"
	"auragold-backend/database"
	"auragold-backend/middlewares"
	"auragold-backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/romana/rlog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "auragold",
		Short:         "AuraGold order, payment plan and gold rate protection backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API with the protection monitor and outbox dispatcher", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Apply schema migrations and seed rows", RunE: runMigrate},
		&cobra.Command{Use: "sweep", Short: "Run one protection sweep and drain the outbox", RunE: runSweep},
	)
	if err := root.Execute(); err != nil {
		rlog.Critical(err.Error())
		os.Exit(1)
	}
}

func setup(ctx context.Context, migrate bool) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	s, err := buildServices(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(s.db); err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	s, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()
	rlog.Info("migrations applied")
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	report, err := s.monitor.Tick(ctx, time.Now())
	if err != nil {
		return err
	}
	drained, err := s.dispatcher.Drain(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("evaluated=%d changed=%d warnings=%d lapsed=%d restored=%d conflicts=%d sent=%d failed=%d\n",
		report.Evaluated, report.Changed, report.Warnings, report.Lapsed, report.Restored, report.Conflicts,
		drained.Sent, drained.Failed)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	cfg := s.cfg.HTTP
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitWindow) * time.Second,
	}))
	routes.Register(app, s.handler(), s.db)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rlog.Infof("API server listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error { return s.monitor.Run(gctx) })
	g.Go(func() error { return s.dispatcher.Run(gctx, s.cfg.Monitor.OutboxInterval) })
	g.Go(func() error { return s.refreshRates(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	rlog.Info("shut down cleanly")
	return nil
}
