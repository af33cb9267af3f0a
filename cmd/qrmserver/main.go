/*
SPDX-FileCopyrightText: Copyright (c) 2026 NVIDIA CORPORATION & AFFILIATES. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.corp.nvidia.com/qrm/internal/audit"
	"go.corp.nvidia.com/qrm/internal/cache"
	"go.corp.nvidia.com/qrm/internal/config"
	"go.corp.nvidia.com/qrm/internal/engine"
	"go.corp.nvidia.com/qrm/internal/httpapi"
	"go.corp.nvidia.com/qrm/internal/liveness"
	"go.corp.nvidia.com/qrm/internal/metrics"
	"go.corp.nvidia.com/qrm/internal/readiness"
	"go.corp.nvidia.com/qrm/internal/store"
	"go.corp.nvidia.com/qrm/internal/watch"
	"go.corp.nvidia.com/qrm/utils"
	"go.corp.nvidia.com/qrm/utils/logging"
	qrmmetrics "go.corp.nvidia.com/qrm/utils/metrics-go"
	"go.corp.nvidia.com/qrm/utils/postgres"
	"go.corp.nvidia.com/qrm/utils/redis"
)

const shutdownTimeout = 30 * time.Second

func main() {
	args := config.Parse()

	logger := logging.InitLogger("qrm-server", logging.Config{
		Level: logging.ParseLevel(args.LogLevel),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var mc *qrmmetrics.MetricCreator
	if args.Metrics.Enabled {
		if err := qrmmetrics.InitMetricCreator(args.Metrics); err != nil {
			logger.Error("failed to initialize metrics, continuing without them", slog.String("error", err.Error()))
		} else {
			mc = qrmmetrics.GetMetricCreator()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mc.Shutdown(shutdownCtx); err != nil {
					logger.Error("failed to shut down metrics", slog.String("error", err.Error()))
				}
			}()
		}
	}
	recorder := metrics.New(mc)

	redisClient, err := connectRedisWithBackoff(ctx, args.Redis, logger)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	st := store.NewRedisStore(ctx, redisClient, logger)

	var auditSink *audit.Sink
	if args.AuditEnabled {
		pgClient, err := postgres.NewPostgresClient(ctx, args.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to Postgres, continuing without an audit trail", slog.String("error", err.Error()))
		} else {
			defer pgClient.Close()
			auditSink, err = audit.New(ctx, pgClient, logger)
			if err != nil {
				logger.Error("failed to initialize audit trail, continuing without one", slog.String("error", err.Error()))
			}
		}
	}

	respCache := cache.NewResponseCache(args.CacheMaxSize, args.CacheTTL())

	eng := engine.New(ctx, st, logger, engine.Config{
		UsePendingLogic: args.UsePendingLogic,
		Audit:           auditSink,
		Metrics:         recorder,
		ResponseCache:   respCache,
	})
	if err := eng.InitBackend(ctx); err != nil {
		log.Fatalf("failed to recover engine state: %v", err)
	}
	defer eng.StopBackend()

	rd := readiness.NewWithMetrics(st, recorder)

	hub := watch.NewHub(logger)
	go hub.Run(ctx)
	watcher := watch.NewWatcher(st, hub, args.WatchPollInterval())
	go watcher.Run(ctx)

	reporter, err := liveness.NewReporter(args.ProgressDir+"/heartbeat", args.LivenessInterval(), nil, logger)
	if err != nil {
		logger.Error("failed to initialize liveness reporter, continuing without one", slog.String("error", err.Error()))
	} else {
		go reporter.Run(ctx)
	}

	userServer := &http.Server{
		Addr:    args.Host,
		Handler: httpapi.NewUserHandler(eng, logger).Routes(),
	}

	managementMux := http.NewServeMux()
	managementMux.Handle("/", httpapi.NewManagementHandler(st, rd, auditSink, logger).Routes())
	managementMux.Handle("/watch_status", watch.NewHandler(hub, logger).Routes())
	managementServer := &http.Server{
		Addr:    args.ManagementHost,
		Handler: managementMux,
	}

	go func() {
		<-ctx.Done()
		logger.Info("received shutdown signal, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := userServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("user API graceful shutdown failed", slog.String("error", err.Error()))
		}
		if err := managementServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("management API graceful shutdown failed", slog.String("error", err.Error()))
		}
	}()

	go func() {
		logger.Info("qrm management server listening", slog.String("host", args.ManagementHost))
		if err := managementServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("management server failed: %v", err)
		}
	}()

	logger.Info("qrm user server listening", slog.String("host", args.Host))
	if err := userServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("user server failed: %v", err)
	}
}

const maxRedisConnectRetries = 5

// connectRedisWithBackoff retries the initial Redis connection with
// exponential backoff: the store has nothing to recover into until
// Redis answers, and a transient restart of the Redis pod shouldn't
// crash-loop the whole server.
func connectRedisWithBackoff(ctx context.Context, cfg redis.RedisConfig, logger *slog.Logger) (*redis.RedisClient, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRedisConnectRetries; attempt++ {
		client, err := redis.NewRedisClient(ctx, cfg, logger)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if attempt == maxRedisConnectRetries {
			break
		}
		backoffDur := utils.CalculateBackoff(attempt+1, 30*time.Second)
		logger.Warn("failed to connect to Redis, retrying with backoff",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoffDur))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoffDur):
		}
	}
	return nil, lastErr
}
