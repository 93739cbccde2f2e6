// Package metrics exposes the prometheus counters for authentication
// outcomes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "gophauth"

const (
	OpRegister = "register"
	OpLogin    = "login"
)

type Metrics struct {
	registry           *prometheus.Registry
	authRequests       *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
}

// New registers the counters on a private registry, together with the
// process and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		authRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_requests_total",
			Help:      "Register and login attempts by outcome.",
		}, []string{"operation", "outcome"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Bearer token verifications by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.authRequests,
		m.tokenVerifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Gather implements prometheus.Gatherer over the private registry.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	if m == nil {
		return nil, nil
	}
	return m.registry.Gather()
}

// Handler serves Gather in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m, promhttp.HandlerOpts{})
}

func (m *Metrics) AuthRequest(operation string, err error) {
	if m == nil {
		return
	}
	m.authRequests.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) TokenVerification(err error) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(TokenOutcome(err)).Inc()
}

// Outcome maps a service error to a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorValidation):
		return "validation"
	case errors.Is(err, common.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, common.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}

func TokenOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrTokenMissing):
		return "missing"
	case errors.Is(err, common.ErrTokenInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, common.ErrTokenExpired):
		return "expired"
	default:
		return "malformed"
	}
}
