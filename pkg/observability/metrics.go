package observability

import (
	"errors"
	"log/slog"

	"github.com/aretw0/skein/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine activity as Prometheus counters.
type Metrics struct {
	nodeVisits  *prometheus.CounterVec
	choices     *prometheus.CounterVec
	completions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skein_node_visits_total",
			Help: "Total number of nodes entered, by story and node kind.",
		}, []string{"story", "kind"}),
		choices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skein_choices_total",
			Help: "Total number of choices taken, by story.",
		}, []string{"story", "sticky"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skein_completions_total",
			Help: "Total number of stories finished, by story and ending.",
		}, []string{"story", "ending"}),
	}

	var err error
	m.nodeVisits, err = register(reg, m.nodeVisits)
	if err != nil {
		return nil, err
	}
	m.choices, err = register(reg, m.choices)
	if err != nil {
		return nil, err
	}
	m.completions, err = register(reg, m.completions)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks feeding the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.StoryID, string(e.NodeKind)).Inc()
		},
		OnChoice: func(e *domain.ChoiceEvent) {
			sticky := "false"
			if e.Sticky {
				sticky = "true"
			}
			m.choices.WithLabelValues(e.StoryID, sticky).Inc()
		},
		OnComplete: func(e *domain.CompleteEvent) {
			ending := "end"
			if e.NodeID == domain.AutoEndID {
				ending = "auto_end"
			}
			m.completions.WithLabelValues(e.StoryID, ending).Inc()
		},
	}
}

// LoggingHooks logs choices and completions at info level and node entries
// at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(e *domain.NodeEvent) {
			logger.Debug("node_enter", "story_id", e.StoryID, "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnChoice: func(e *domain.ChoiceEvent) {
			logger.Info("choice", "story_id", e.StoryID, "node_id", e.NodeID, "text", e.Text, "turn", e.Turn)
		},
		OnComplete: func(e *domain.CompleteEvent) {
			logger.Info("complete", "story_id", e.StoryID, "node_id", e.NodeID, "turns", e.Turns)
		},
	}
}

// Chain merges hooks so each event reaches every non-nil callback in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		if h.OnNodeEnter != nil {
			prev, next := out.OnNodeEnter, h.OnNodeEnter
			out.OnNodeEnter = func(e *domain.NodeEvent) {
				if prev != nil {
					prev(e)
				}
				next(e)
			}
		}
		if h.OnChoice != nil {
			prev, next := out.OnChoice, h.OnChoice
			out.OnChoice = func(e *domain.ChoiceEvent) {
				if prev != nil {
					prev(e)
				}
				next(e)
			}
		}
		if h.OnComplete != nil {
			prev, next := out.OnComplete, h.OnComplete
			out.OnComplete = func(e *domain.CompleteEvent) {
				if prev != nil {
					prev(e)
				}
				next(e)
			}
		}
	}
	return out
}
