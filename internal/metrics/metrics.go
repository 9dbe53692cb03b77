// Package metrics exposes the crawler's Prometheus counters and gauges on
// the default registry (spec SPEC_FULL.md §4.8.7): inspection/deferral/
// verdict/deletion throughput, a forbidden-window counter, and the
// inbox-depth gauge the operator dashboards read.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every counter/gauge the crawler's loops touch. Pass a
// *Metrics through the same App bundle the Store/API are threaded through,
// rather than reaching for prometheus' global registry from inside the
// crawler package directly.
type Metrics struct {
	InspectionsTotal *prometheus.CounterVec
	DeferralsTotal   prometheus.Counter
	VerdictsTotal    *prometheus.CounterVec
	ForbiddenWindows prometheus.Counter
	UsersDeleted     prometheus.Counter
	NewUserInboxSize prometheus.Gauge
}

// New registers every metric on the default registry and returns the bundle.
// Calling New twice in the same process panics (duplicate registration),
// matching promauto's documented behavior; tests should build their own
// registry via NewWithRegisterer instead.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers every metric against reg, allowing tests to
// pass a fresh prometheus.NewRegistry() instead of the global default.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		InspectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spamhunter_inspections_total",
			Help: "Completed inspect_user calls, by outcome.",
		}, []string{"outcome"}),
		DeferralsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spamhunter_deferrals_total",
			Help: "DeferredUser rows written or advanced.",
		}),
		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spamhunter_verdicts_total",
			Help: "Moderator verdicts applied, by verdict.",
		}, []string{"verdict"}),
		ForbiddenWindows: factory.NewCounter(prometheus.CounterOpts{
			Name: "spamhunter_forbidden_windows_total",
			Help: "Times the platform client entered a forbidden backoff window.",
		}),
		UsersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "spamhunter_users_deleted_total",
			Help: "Users deleted after a 404/410 profile response.",
		}),
		NewUserInboxSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spamhunter_new_user_inbox_size",
			Help: "Last-observed depth of the NewUser inbox.",
		}),
	}
}
