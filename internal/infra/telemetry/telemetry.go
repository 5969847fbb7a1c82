package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nrodcast/account-service/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	requestCounter prometheus.Counter
	signInCounter  *prometheus.CounterVec
	resetCounter   *prometheus.CounterVec
}

// Attach configures telemetry collectors and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		requestCounter: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "account",
			Subsystem: "core",
			Name:      "requests_total",
			Help:      "Total number of service operations",
		}),
		signInCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "signin_attempts_total",
			Help:      "Sign-in attempts by outcome",
		}, []string{"outcome"}),
		resetCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "account",
			Name:      "password_reset_total",
			Help:      "Password reset operations by stage",
		}, []string{"stage"}),
	}, nil
}

// RequestCounter exposes the HTTP request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.requestCounter
}

// CountSignIn records a sign-in attempt outcome ("success" or "failure").
func (p *Provider) CountSignIn(outcome string) {
	if p == nil || p.signInCounter == nil {
		return
	}
	p.signInCounter.WithLabelValues(outcome).Inc()
}

// CountReset records a reset flow stage ("requested" or "redeemed").
func (p *Provider) CountReset(stage string) {
	if p == nil || p.resetCounter == nil {
		return
	}
	p.resetCounter.WithLabelValues(stage).Inc()
}
