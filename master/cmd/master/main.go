// Copyright 2026 R5Valkyrie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/r5valkyrie/master-server-sub000/master"
	"github.com/r5valkyrie/master-server-sub000/master/config"
	"github.com/r5valkyrie/master-server-sub000/master/mgmtapi"
	"github.com/r5valkyrie/master-server-sub000/master/presence"
	"github.com/r5valkyrie/master-server-sub000/master/registration"
	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
	"github.com/r5valkyrie/master-server-sub000/private/periodic"
)

func main() {
	var flagConfig string
	cmd := &cobra.Command{
		Use:           "master",
		Short:         "R5Valkyrie master server",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if err := log.Setup(cfg.Logging); err != nil {
				return serrors.WrapStr("setting up logging", err)
			}
			defer log.Flush()
			defer log.HandlePanic()
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&flagConfig, "config", "", "configuration file (TOML)")
	cmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print a commented sample configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.Sample)
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := log.New("id", cfg.General.ID)
	logger.Info("Starting", "listen_addr", cfg.General.ListenAddr, "redis", cfg.Redis.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()
	// An unreachable registry at boot is logged, not fatal: registrations
	// fail individually until it comes back.
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Registry unreachable at startup", "err", err)
	}
	store := registry.NewStore(client)

	metrics := master.NewMetrics()
	registrar := &registration.Registrar{
		Store:   store,
		Timeout: cfg.Verify.Timeout.Duration,
		TTL:     cfg.Verify.TTL.Duration,
		Metrics: metrics.Registration,
	}

	var limiter *rate.Limiter
	if cfg.General.RequestRate > 0 {
		limiter = rate.NewLimiter(
			rate.Limit(cfg.General.RequestRate), cfg.General.RequestBurst)
	}
	api := &mgmtapi.Server{
		Registrar: registrar,
		Store:     store,
		Limiter:   limiter,
	}
	if cfg.Metrics.Addr == "" {
		api.MetricsHandler = metrics.Handler()
	}

	notifier := presence.LogNotifier{}
	tracker := &presence.Tracker{
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics.Presence,
	}
	runners := []*periodic.Runner{
		periodic.Start(tracker,
			periodic.NewTicker(cfg.Presence.DiffInterval.Duration),
			cfg.Presence.DiffInterval.Duration),
		periodic.Start(&presence.CountTask{Store: store, Notifier: notifier},
			periodic.NewTicker(cfg.Presence.CountInterval.Duration),
			cfg.Presence.CountInterval.Duration),
		periodic.Start(&presence.SummaryTask{Store: store, Notifier: notifier},
			periodic.NewTicker(cfg.Presence.SummaryInterval.Duration),
			cfg.Presence.SummaryInterval.Duration),
	}
	defer func() {
		for _, r := range runners {
			r.Kill()
		}
	}()

	g, errCtx := errgroup.WithContext(ctx)
	apiServer := &http.Server{
		Addr:    cfg.General.ListenAddr,
		Handler: api.Router(),
	}
	g.Go(func() error {
		defer log.HandlePanic()
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			return serrors.WrapStr("serving API", err, "addr", cfg.General.ListenAddr)
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		g.Go(func() error {
			defer log.HandlePanic()
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				return serrors.WrapStr("serving metrics", err, "addr", cfg.Metrics.Addr)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer log.HandlePanic()
		<-errCtx.Done()
		logger.Info("Shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutCtx)
		}
		return apiServer.Shutdown(shutCtx)
	})
	return g.Wait()
}
