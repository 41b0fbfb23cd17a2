// Package metrics turns authentication activity events into Prometheus
// counters.
package metrics

import (
	"bytes"
	"context"

	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	auth "github.com/salesreport/go-auth"
)

const namespace = "salesauth"

// Collector is an auth.ActivitySink backed by Prometheus counters.
type Collector struct {
	// LoginAttempts counts login outcomes by result and failure reason
	LoginAttempts *prometheus.CounterVec
	// TokenRejections counts rejected bearer tokens by reason
	TokenRejections *prometheus.CounterVec
	// AccessDenied counts guard denials by operation and reason
	AccessDenied *prometheus.CounterVec
	// Logouts counts logout calls
	Logouts prometheus.Counter
}

var _ auth.ActivitySink = (*Collector)(nil)

// NewCollector creates the counters and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Total number of login attempts by result",
			},
			[]string{"result", "reason"},
		),
		TokenRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_rejections_total",
				Help:      "Total number of rejected access tokens by reason",
			},
			[]string{"reason"},
		),
		AccessDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_denied_total",
				Help:      "Total number of authorization denials by operation",
			},
			[]string{"operation", "reason"},
		),
		Logouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logouts_total",
				Help:      "Total number of logouts",
			},
		),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.LoginAttempts, c.TokenRejections, c.AccessDenied, c.Logouts} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// Record implements auth.ActivitySink.
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		c.LoginAttempts.WithLabelValues("success", "").Inc()
	case auth.ActivityEventLoginFailure:
		c.LoginAttempts.WithLabelValues("failure", labelOrUnknown(event.Reason)).Inc()
	case auth.ActivityEventTokenRejected:
		c.TokenRejections.WithLabelValues(labelOrUnknown(event.Reason)).Inc()
	case auth.ActivityEventAccessDenied:
		c.AccessDenied.WithLabelValues(labelOrUnknown(event.Operation), labelOrUnknown(event.Reason)).Inc()
	case auth.ActivityEventLogout:
		c.Logouts.Inc()
	}
	return nil
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) router.HandlerFunc {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return func(c router.Context) error {
		families, err := gatherer.Gather()
		if err != nil {
			return auth.Internal(err, "gather metrics")
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return auth.Internal(err, "encode metrics")
			}
		}

		c.SetHeader(router.HeaderContentType, string(format))
		return c.Status(router.StatusOK).Send(buf.Bytes())
	}
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
