package workflow

import (
	"context"
	"fmt"
	"time"

	"recruitment-platform/internal/models"
	"recruitment-platform/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EventStatus    EventType = "status"
	EventToolStart EventType = "tool_start"
	EventNodeEnd   EventType = "node_end"
	EventSuccess   EventType = "success"
	EventError     EventType = "error"
)

// Event is a progress update of a running workflow
type Event struct {
	Type      EventType `json:"status"`
	Message   string    `json:"message"`
	Node      string    `json:"node,omitempty"`
	Group     string    `json:"group"`
	Timestamp time.Time `json:"timestamp"`

	TenantID  uuid.UUID `json:"-"`
	VacancyID uuid.UUID `json:"-"`
}

// GroupName is the live channel of a vacancy
func GroupName(tenantID, vacancyID uuid.UUID) string {
	return fmt.Sprintf("vacancy_%s_%s", tenantID, vacancyID)
}

// Sink receives workflow events
type Sink interface {
	Publish(ctx context.Context, e Event)
}

type SinkFunc func(ctx context.Context, e Event)

func (f SinkFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// Monitor stamps events with the vacancy group and fans them out to sinks.
// A nil Monitor drops everything.
type Monitor struct {
	tenantID  uuid.UUID
	vacancyID uuid.UUID
	group     string
	sinks     []Sink
}

// NewMonitor creates a monitor for one sourcing run
func NewMonitor(tenantID, vacancyID uuid.UUID, sinks ...Sink) *Monitor {
	return &Monitor{
		tenantID:  tenantID,
		vacancyID: vacancyID,
		group:     GroupName(tenantID, vacancyID),
		sinks:     sinks,
	}
}

func (m *Monitor) Group() string {
	if m == nil {
		return ""
	}
	return m.group
}

// Emit publishes an event to every sink
func (m *Monitor) Emit(ctx context.Context, t EventType, node, message string) {
	if m == nil {
		return
	}
	e := Event{
		Type:      t,
		Message:   message,
		Node:      node,
		Group:     m.group,
		Timestamp: time.Now().UTC(),
		TenantID:  m.tenantID,
		VacancyID: m.vacancyID,
	}
	for _, s := range m.sinks {
		s.Publish(ctx, e)
	}
}

// ToolStart reports that node is about to run tool
func (m *Monitor) ToolStart(ctx context.Context, node, tool string) {
	m.Emit(ctx, EventToolStart, node, "Running tool: "+tool)
}

// LogSink writes events to the logger at debug level
func LogSink(logger *zap.Logger) Sink {
	return SinkFunc(func(_ context.Context, e Event) {
		logger.Debug("Workflow event",
			zap.String("group", e.Group),
			zap.String("type", string(e.Type)),
			zap.String("node", e.Node),
			zap.String("message", e.Message),
		)
	})
}

// ActivitySink persists events to the tenant's activity log. Events are
// still recorded after the run's context is cancelled.
func ActivitySink(activities *services.ActivityService) Sink {
	return SinkFunc(func(ctx context.Context, e Event) {
		meta := map[string]any{"status": string(e.Type)}
		if e.Node != "" {
			meta["node"] = e.Node
		}

		activities.Record(context.WithoutCancel(ctx), models.NewActivityBuilder(models.ActivityTypeWorkflowEvent).
			WithTitle(fmt.Sprintf("Sourcing %s", e.Type)).
			WithDescription(e.Message).
			WithTenant(e.TenantID).
			WithVacancy(e.VacancyID).
			WithGroup(e.Group).
			WithMetadata(meta).
			Build())
	})
}
