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

// Package audit is the supplemental Postgres audit trail (SPEC_FULL.md
// §C.2): an append-only record of every request lifecycle transition,
// kept around after the Redis-backed state it describes is gone. It is
// never read by the allocation path, only by the audit query surface.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"go.corp.nvidia.com/qrm/utils/postgres"
)

// EventType names a request-lifecycle transition worth recording.
type EventType string

const (
	EventNewRequest EventType = "new_request"
	EventFinalized  EventType = "finalized"
	EventCancelled  EventType = "cancelled"
	EventNotValid   EventType = "not_valid"
)

const schema = `
CREATE TABLE IF NOT EXISTS qrm_audit_events (
	id    BIGSERIAL PRIMARY KEY,
	token TEXT NOT NULL,
	event TEXT NOT NULL,
	names TEXT[] NOT NULL DEFAULT '{}',
	ts    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS qrm_audit_events_token_idx ON qrm_audit_events (token);
`

// Event is one row of the audit trail.
type Event struct {
	Token     string
	Event     EventType
	Names     []string
	Timestamp time.Time
}

// Sink appends request-lifecycle events to Postgres. It is best-effort:
// RecordEvent never blocks the allocation path and swallows its own
// errors after logging them.
type Sink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New ensures the audit schema exists and returns a Sink bound to
// client's pool.
func New(ctx context.Context, client *postgres.PostgresClient, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := client.Pool().Exec(ctx, schema); err != nil {
		return nil, err
	}
	return &Sink{pool: client.Pool(), logger: logger}, nil
}

// RecordEvent appends one audit row in the background. A nil Sink is a
// valid no-op receiver, so callers can wire audit optionally.
func (s *Sink) RecordEvent(token string, event EventType, names []string) {
	if s == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO qrm_audit_events (token, event, names) VALUES ($1, $2, $3)`,
			token, string(event), names)
		if err != nil {
			s.logger.Warn("audit: failed to record event",
				slog.String("token", token), slog.String("event", string(event)), slog.String("error", err.Error()))
		}
	}()
}

// EventsForToken returns every recorded event for token, oldest first.
func (s *Sink) EventsForToken(ctx context.Context, token string) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT token, event, names, ts FROM qrm_audit_events WHERE token = $1 ORDER BY ts ASC`, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var eventStr string
		if err := rows.Scan(&e.Token, &eventStr, &e.Names, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Event = EventType(eventStr)
		events = append(events, e)
	}
	return events, rows.Err()
}
