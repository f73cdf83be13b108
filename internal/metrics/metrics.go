// Package metrics collects and exposes Prometheus metrics for the identity
// and session subsystem.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records subsystem events. Services hold a *Collector; a nil
// receiver is valid and drops everything, which keeps tests quiet.
type Collector struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	accountsNew   prometheus.Counter
	refreshOK     prometheus.Counter
	refreshFail   *prometheus.CounterVec
	revocations   prometheus.Counter
	sweepDeleted  prometheus.Counter
	autoApprovals *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moim_logins_total",
			Help: "Successful logins by method (password or provider name).",
		}, []string{"method"}),
		accountsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moim_accounts_created_total",
			Help: "Accounts created by the identity resolver.",
		}),
		refreshOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moim_token_refresh_total",
			Help: "Successful refresh-token rotations.",
		}),
		refreshFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moim_token_refresh_failures_total",
			Help: "Refresh failures by reason (missing, expired, used, revoked).",
		}, []string{"reason"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moim_token_revocations_total",
			Help: "Refresh tokens revoked by logout.",
		}),
		sweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moim_sweep_deleted_total",
			Help: "Expired refresh-token records deleted by the sweep worker.",
		}),
		autoApprovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moim_auto_approvals_total",
			Help: "Auto-approval decisions by outcome (granted or exhausted).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.logins,
		c.accountsNew,
		c.refreshOK,
		c.refreshFail,
		c.revocations,
		c.sweepDeleted,
		c.autoApprovals,
	)

	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordLogin(method string) {
	if c == nil {
		return
	}
	c.logins.WithLabelValues(method).Inc()
}

func (c *Collector) RecordAccountCreated() {
	if c == nil {
		return
	}
	c.accountsNew.Inc()
}

func (c *Collector) RecordRefresh() {
	if c == nil {
		return
	}
	c.refreshOK.Inc()
}

func (c *Collector) RecordRefreshFailure(reason string) {
	if c == nil {
		return
	}
	c.refreshFail.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRevocation(n int) {
	if c == nil {
		return
	}
	c.revocations.Add(float64(n))
}

func (c *Collector) RecordSweep(deleted int64) {
	if c == nil {
		return
	}
	c.sweepDeleted.Add(float64(deleted))
}

func (c *Collector) RecordAutoApproval(granted bool) {
	if c == nil {
		return
	}
	outcome := "granted"
	if !granted {
		outcome = "exhausted"
	}
	c.autoApprovals.WithLabelValues(outcome).Inc()
}
