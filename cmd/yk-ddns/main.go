package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/cloudflare"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/diagnostics"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/metrics"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/publicip"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/publicip/sources"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/scheduler"
)

var Version = "dev"

func main() {
	opts := zap.Options{
		Development: true,
		Level:       zapcore.InfoLevel,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if err := run(ctrl.SetupSignalHandler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := ctrl.Log.WithName("setup")

	log.Info("starting yk-ddns", "version", Version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	log.Info("loaded config",
		"zone", cfg.ZoneName,
		"record", cfg.DNSRecordName,
		"interval", cfg.UpdateInterval(),
		"ipSource", cfg.IPSource.Type)

	resolver, err := publicip.NewResolver(cfg.IPSource.Type, ctrl.Log.WithName("ip-"+cfg.IPSource.Type), cfg.IPSource.Settings)
	if err != nil {
		return fmt.Errorf("unable to create IP resolver: %w", err)
	}

	api, err := cloudflare.New(ctrl.Log.WithName("cloudflare"), cfg.APIToken, cloudflare.WithBaseURL(cfg.APIBaseURL))
	if err != nil {
		return fmt.Errorf("unable to create Cloudflare client: %w", err)
	}

	reconciler := &ddns.Reconciler{
		Log:        ctrl.Log.WithName("ddns"),
		Resolver:   resolver,
		API:        api,
		ZoneName:   cfg.ZoneName,
		RecordName: cfg.DNSRecordName,
		Observe:    metrics.ObserveTick,
	}
	sched := &scheduler.Scheduler{
		Log:          ctrl.Log.WithName("scheduler"),
		InitialDelay: cfg.StartupDelay,
		Interval:     cfg.UpdateInterval(),
	}

	g, ctx := errgroup.WithContext(ctx)

	if !diagnostics.Disabled(cfg.MetricsBindAddress) {
		ln, err := diagnostics.Listen(cfg.MetricsBindAddress)
		if err != nil {
			return fmt.Errorf("unable to start metrics server: %w", err)
		}
		g.Go(func() error {
			return diagnostics.Serve(ctx, ctrl.Log.WithName("metrics"), ln, diagnostics.MetricsHandler())
		})
	}
	if !diagnostics.Disabled(cfg.HealthProbeBindAddress) {
		ln, err := diagnostics.Listen(cfg.HealthProbeBindAddress)
		if err != nil {
			return fmt.Errorf("unable to start health probe server: %w", err)
		}
		handler := diagnostics.HealthHandler(map[string]healthz.Checker{"first-update": sched.Checker()})
		g.Go(func() error {
			return diagnostics.Serve(ctx, ctrl.Log.WithName("health"), ln, handler)
		})
	}

	g.Go(func() error {
		return sched.Run(ctx, func(ctx context.Context) { reconciler.Tick(ctx) })
	})

	log.Info("starting update loop")
	if err := g.Wait(); err != nil {
		return fmt.Errorf("exited with error: %w", err)
	}
	log.Info("shut down cleanly")
	return nil
}
