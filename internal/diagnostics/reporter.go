package diagnostics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BTreeMap/FieldOps/internal/capability"
)

var (
	breadcrumbsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldops_diagnostics_breadcrumbs_total",
		Help: "Breadcrumbs recorded by the diagnostics reporter",
	})

	incidentsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_diagnostics_incidents_total",
		Help: "Incidents captured by the diagnostics reporter, by error kind",
	}, []string{"kind"})
)

// SlogReporter is a capability.Diagnostics that writes to a slog logger.
// Breadcrumbs are logged at debug level and incidents at error level.
type SlogReporter struct {
	logger *slog.Logger

	mu   sync.Mutex
	user string
}

// NewSlogReporter returns a reporter writing to logger, or to the default
// logger when logger is nil.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

func (r *SlogReporter) Capture(ctx context.Context, incident capability.Incident) {
	incidentsCaptured.WithLabelValues(string(incident.Error.Kind)).Inc()
	r.logger.ErrorContext(ctx, "Diagnostics.Capture: incident",
		"id", incident.ID, "action", incident.Action, "error", incident.Error.Error(), "user", r.User())
}

func (r *SlogReporter) AddBreadcrumb(ctx context.Context, b capability.Breadcrumb) {
	breadcrumbsRecorded.Inc()
	if !r.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	r.logger.DebugContext(ctx, "Diagnostics.AddBreadcrumb: "+b.Kind,
		"id", b.ID, "message", b.Message, "action", b.Data["action"], "diff", b.Data["diff"])
}

func (r *SlogReporter) UpdateUser(ctx context.Context, id string) {
	r.mu.Lock()
	r.user = id
	r.mu.Unlock()
	r.logger.InfoContext(ctx, "Diagnostics.UpdateUser: user changed", "user", id)
}

// User returns the id last set with UpdateUser.
func (r *SlogReporter) User() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user
}
