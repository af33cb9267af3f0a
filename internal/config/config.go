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

// Package config gathers every flag/env/config-file-backed setting the
// qrmserver binary needs into one Args, following the same
// flag-registration-then-Parse shape the rest of the codebase uses for
// Redis, Postgres and metrics configuration.
package config

import (
	"flag"
	"time"

	"go.corp.nvidia.com/qrm/utils"
	"go.corp.nvidia.com/qrm/utils/metrics-go"
	"go.corp.nvidia.com/qrm/utils/postgres"
	"go.corp.nvidia.com/qrm/utils/redis"
)

// Args holds every configuration value the server needs, parsed from
// flags, environment variables, and (for a handful of sensitive
// string values) the QRM_CONFIG_FILE YAML fallback.
type Args struct {
	Host           string
	ManagementHost string
	LogLevel       string

	UsePendingLogic bool

	ProgressDir          string
	ProgressFrequencySec int

	CacheMaxSize int
	CacheTTLSec  int

	WatchPollIntervalMS int

	AuditEnabled bool

	Redis    redis.RedisConfig
	Postgres postgres.PostgresConfig
	Metrics  metrics.MetricsConfig
}

// LivenessInterval returns ProgressFrequencySec as a time.Duration.
func (a Args) LivenessInterval() time.Duration {
	return time.Duration(a.ProgressFrequencySec) * time.Second
}

// CacheTTL returns CacheTTLSec as a time.Duration.
func (a Args) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLSec) * time.Second
}

// WatchPollInterval returns WatchPollIntervalMS as a time.Duration.
func (a Args) WatchPollInterval() time.Duration {
	return time.Duration(a.WatchPollIntervalMS) * time.Millisecond
}

// Parse parses command-line arguments and environment variables into
// an Args. It must be called exactly once, before flag.Parse() is
// called anywhere else in the process.
func Parse() Args {
	host := flag.String("host",
		utils.GetEnv("QRM_HOST", "0.0.0.0:8080"),
		"Host:port for the QRM User HTTP API")
	managementHost := flag.String("management-host",
		utils.GetEnv("QRM_MANAGEMENT_HOST", "0.0.0.0:8081"),
		"Host:port for the QRM Management HTTP API and /watch_status feed")
	logLevel := flag.String("log-level",
		utils.GetEnv("QRM_LOG_LEVEL", "INFO"),
		"Logging level (DEBUG, INFO, WARN, ERROR)")
	usePendingLogic := flag.Bool("use-pending-logic",
		utils.GetEnvBool("QRM_USE_PENDING_LOGIC", false),
		"On hand-off, move the previous owner's resources to pending and wait for them to become active before finalizing")

	progressDir := flag.String("progress-dir",
		utils.GetEnv("QRM_PROGRESS_DIR", "/tmp/qrm/"),
		"Directory to write the liveness heartbeat file to")
	progressFrequencySec := flag.Int("progress-frequency-sec",
		utils.GetEnvInt("QRM_PROGRESS_FREQUENCY_SEC", 15),
		"Liveness heartbeat frequency in seconds")

	cacheMaxSize := flag.Int("cache-max-size",
		utils.GetEnvInt("QRM_CACHE_MAX_SIZE", 10000),
		"Maximum number of terminal request responses held in the response cache")
	cacheTTLSec := flag.Int("cache-ttl-sec",
		utils.GetEnvInt("QRM_CACHE_TTL_SEC", 300),
		"Response cache entry TTL in seconds")

	watchPollIntervalMS := flag.Int("watch-poll-interval-ms",
		utils.GetEnvInt("QRM_WATCH_POLL_INTERVAL_MS", 1000),
		"Resource-status polling interval for the /watch_status feed, in milliseconds")

	auditEnabled := flag.Bool("audit-enable",
		utils.GetEnvBool("QRM_AUDIT_ENABLE", true),
		"Record an append-only audit trail of token lifecycle events to Postgres")

	redisFlagPtrs := redis.RegisterRedisFlags()
	postgresFlagPtrs := postgres.RegisterPostgresFlags()
	metricsFlagPtrs := metrics.RegisterMetricsFlags("qrm-server")

	flag.Parse()

	return Args{
		Host:                 *host,
		ManagementHost:       *managementHost,
		LogLevel:             *logLevel,
		UsePendingLogic:      *usePendingLogic,
		ProgressDir:          *progressDir,
		ProgressFrequencySec: *progressFrequencySec,
		CacheMaxSize:         *cacheMaxSize,
		CacheTTLSec:          *cacheTTLSec,
		WatchPollIntervalMS:  *watchPollIntervalMS,
		AuditEnabled:         *auditEnabled,
		Redis:                redisFlagPtrs.ToRedisConfig(),
		Postgres:             postgresFlagPtrs.ToPostgresConfig(),
		Metrics:              metricsFlagPtrs.ToMetricsConfig(),
	}
}
