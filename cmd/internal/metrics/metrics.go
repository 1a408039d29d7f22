// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	OutcomeResolved    = "resolved"
	OutcomeInvalidCode = "invalid_code"
	OutcomeNotFound    = "not_found"
	OutcomeAlreadyUsed = "already_used"
	OutcomeError       = "error"
)

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	invitesCreated prometheus.Counter
	resolutions    *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	rejections     *prometheus.CounterVec
}

// New registers the wedding counters plus Go and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invitesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wedding_invites_created_total",
			Help: "Invite codes issued.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_invite_resolutions_total",
			Help: "Invite link resolutions by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_rsvp_submissions_total",
			Help: "Accepted RSVP submissions by status.",
		}, []string{"status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wedding_rsvp_rejections_total",
			Help: "Rejected RSVP submissions by reason.",
		}, []string{"reason"}),
	}
	r.registry.MustRegister(
		r.invitesCreated,
		r.resolutions,
		r.submissions,
		r.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) InviteCreated() {
	if r == nil {
		return
	}
	r.invitesCreated.Inc()
}

func (r *Recorder) InviteResolved(outcome string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RSVPSubmitted(status string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(status).Inc()
}

func (r *Recorder) RSVPRejected(reason string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
