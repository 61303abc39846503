/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

// QueryMetricsHook records query counts and latencies per operation.
type QueryMetricsHook struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ bun.QueryHook = (*QueryMetricsHook)(nil)

// NewQueryMetricsHook creates the collectors and registers them with reg;
// a nil reg leaves them unregistered.
func NewQueryMetricsHook(reg prometheus.Registerer, namespace string) (*QueryMetricsHook, error) {
	h := &QueryMetricsHook{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Number of executed queries by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Query latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
	}
	if reg == nil {
		return h, nil
	}
	var err error
	if h.queries, err = register(reg, h.queries); err != nil {
		return nil, err
	}
	if h.duration, err = register(reg, h.duration); err != nil {
		return nil, err
	}
	return h, nil
}

// register returns the collector already registered under the same
// descriptor when there is one, so several managers can share metrics.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Collectors returns the hook's collectors, for registering elsewhere.
func (h *QueryMetricsHook) Collectors() []prometheus.Collector {
	return []prometheus.Collector{h.queries, h.duration}
}

func (h *QueryMetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryMetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := event.Operation()
	result := "ok"
	switch {
	case event.Err == nil:
	case errors.Is(event.Err, sql.ErrNoRows):
		result = "no_rows"
	default:
		result = "error"
	}
	h.queries.WithLabelValues(op, result).Inc()
	h.duration.WithLabelValues(op).Observe(time.Since(event.StartTime).Seconds())
}
