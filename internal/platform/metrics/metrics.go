// Copyright (c) 2026 TrustFlow. All rights reserved.

// Package metrics exposes Prometheus instrumentation for the identity service.
//
// All collectors are registered on a private registry so tests can construct
// isolated instances without collector name collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service emits.
type Metrics struct {
	registry *prometheus.Registry

	// LoginAttempts counts authentication attempts by outcome
	// (success, invalid_credential, locked, mfa_required).
	LoginAttempts *prometheus.CounterVec

	// SessionsIssued counts sessions created (login and refresh rotation).
	SessionsIssued prometheus.Counter

	// SessionsRevoked counts sessions revoked by cause (logout, rotation, admin).
	SessionsRevoked *prometheus.CounterVec

	// VerificationDecisions counts verification outcomes by status
	// (APPROVED, REJECTED, EXPIRED, CANCELLED).
	VerificationDecisions *prometheus.CounterVec

	// AuditDropped counts audit entries discarded because the queue was full.
	AuditDropped prometheus.Counter
}

// New constructs and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "login_attempts_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"outcome"}),
		SessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "sessions_issued_total",
			Help:      "Sessions created, including refresh rotations.",
		}),
		SessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "sessions_revoked_total",
			Help:      "Sessions revoked by cause.",
		}, []string{"cause"}),
		VerificationDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "verification_decisions_total",
			Help:      "Terminal verification record outcomes.",
		}, []string{"status"}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "identity",
			Name:      "audit_dropped_total",
			Help:      "Audit entries dropped due to a full queue.",
		}),
	}

	registry.MustRegister(
		m.LoginAttempts,
		m.SessionsIssued,
		m.SessionsRevoked,
		m.VerificationDecisions,
		m.AuditDropped,
	)

	return m
}

// Handler returns the /metrics scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
