package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recruitment-platform/internal/ai/llm"
	"recruitment-platform/internal/ai/tools"
	"recruitment-platform/internal/ai/usage"
	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SourcingWorkflow = "sourcing_workflow"

	NodeAnalyst = "analyst"
	NodeSourcer = "sourcer"

	sourcingSearchLimit = 5
)

// ExecutionRecorder stores priced node runs
type ExecutionRecorder interface {
	LogNodeExecution(ctx context.Context, e usage.NodeExecution) (*models.AgentExecutionLog, error)
}

// nodeTools lists the tools each agent may call. The analyst only reasons
// over the vacancy.
var nodeTools = map[string][]string{
	NodeAnalyst: nil,
	NodeSourcer: {tools.ToolLinkedInSearch},
}

var nodePrompts = map[string]string{
	NodeAnalyst: "You are a recruitment analyst. Study the vacancy and describe the ideal candidate: " +
		"must-have skills, nice-to-have skills, seniority and search keywords.",
	NodeSourcer: "You are a candidate sourcer. Using the analysis and the search results, " +
		"shortlist the most promising profiles and explain why each one fits.",
}

// SourcingBuilder assembles the analyst → sourcer graph
type SourcingBuilder struct {
	model    llm.ChatModel
	registry *tools.Registry
	recorder ExecutionRecorder
	logger   *zap.Logger
}

// NewSourcingBuilder creates a builder for the analyst and sourcer graph
func NewSourcingBuilder(model llm.ChatModel, registry *tools.Registry, recorder ExecutionRecorder, logger *zap.Logger) *SourcingBuilder {
	return &SourcingBuilder{model: model, registry: registry, recorder: recorder, logger: logger}
}

// Build returns the two node analyst and sourcer graph
func (b *SourcingBuilder) Build() (*Graph, error) {
	g := NewGraph(SourcingWorkflow)
	for _, name := range []string{NodeAnalyst, NodeSourcer} {
		for _, tool := range nodeTools[name] {
			if _, err := b.registry.Get(tool); err != nil {
				return nil, fmt.Errorf("node %s: %w", name, err)
			}
		}
		if err := g.AddNode(Node{Name: name, Tools: nodeTools[name], Run: b.agentNode(name)}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (b *SourcingBuilder) agentNode(name string) func(context.Context, *State, *Monitor) error {
	return func(ctx context.Context, state *State, m *Monitor) error {
		tenantID, hasTenant := state.TenantID()
		started := time.Now().UTC()

		err := b.runTools(ctx, name, state, m)

		var resp *llm.Response
		if err == nil {
			resp, err = b.model.Generate(ctx, b.prompt(name, state))
		}

		if err != nil {
			b.logger.Error("Workflow node failed", zap.String("node", name), zap.Error(err))
			if hasTenant {
				b.record(ctx, usage.NodeExecution{
					TenantID:  tenantID,
					NodeName:  name,
					ModelName: b.model.ModelName(),
					Input:     map[string]any{"context": state.Context},
					Status:    models.ExecutionFailed,
					Err:       err,
					StartTime: started,
				}, state)
			}
			return err
		}

		model := resp.Model
		if model == "" {
			model = b.model.ModelName()
		}
		if hasTenant {
			b.record(ctx, usage.NodeExecution{
				TenantID:  tenantID,
				NodeName:  name,
				ModelName: model,
				Input:     map[string]any{"context": state.Context},
				Output:    map[string]any{"content": resp.Content},
				Usage:     resp.Usage,
				Status:    models.ExecutionSuccess,
				StartTime: started,
			}, state)
		}

		state.Messages = append(state.Messages, llm.AssistantMessage(resp.Content))
		state.Outputs[name] = resp.Content
		return nil
	}
}

func (b *SourcingBuilder) record(ctx context.Context, e usage.NodeExecution, state *State) {
	if b.recorder == nil {
		return
	}
	e.WorkflowName = SourcingWorkflow
	e.EndTime = time.Now().UTC()
	if state.VacancyID != uuid.Nil {
		id := state.VacancyID
		e.VacancyID = &id
	}
	if _, err := b.recorder.LogNodeExecution(context.WithoutCancel(ctx), e); err != nil {
		b.logger.Error("Failed to log node execution", zap.String("node", e.NodeName), zap.Error(err))
	}
}

// runTools calls the node's tools and appends each result to the
// conversation as JSON
func (b *SourcingBuilder) runTools(ctx context.Context, node string, state *State, m *Monitor) error {
	for _, name := range nodeTools[node] {
		tool, err := b.registry.Get(name)
		if err != nil {
			return err
		}

		m.ToolStart(ctx, node, name)
		result, err := tool.Call(ctx, toolArgs(name, state))
		if err != nil {
			return fmt.Errorf("tool %s: %w", name, err)
		}

		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("tool %s: failed to encode result: %w", name, err)
		}
		state.ToolResults[name] = result
		state.Messages = append(state.Messages, llm.UserMessage(fmt.Sprintf("Result of %s:\n%s", name, data)))
	}
	return nil
}

func toolArgs(tool string, state *State) map[string]any {
	switch tool {
	case tools.ToolLinkedInSearch:
		return map[string]any{
			"query":       searchQuery(state.Context),
			"location":    contextString(state.Context, "location"),
			"max_results": sourcingSearchLimit,
		}
	}
	return map[string]any{}
}

func searchQuery(jobData map[string]any) string {
	parts := []string{contextString(jobData, "title")}
	if skills := tools.ParseSkills(contextString(jobData, "requirements")); len(skills) > 0 {
		if len(skills) > 3 {
			skills = skills[:3]
		}
		parts = append(parts, skills...)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func contextString(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

// prompt builds the node's input: its instructions, the vacancy, then the
// conversation so far
func (b *SourcingBuilder) prompt(node string, state *State) []llm.Message {
	job := make(map[string]any, len(state.Context))
	for k, v := range state.Context {
		if k != "tenant_id" {
			job[k] = v
		}
	}
	data, _ := json.MarshalIndent(job, "", "  ")

	messages := make([]llm.Message, 0, len(state.Messages)+2)
	messages = append(messages,
		llm.SystemMessage(nodePrompts[node]),
		llm.UserMessage("Vacancy:\n"+string(data)),
	)
	return append(messages, state.Messages...)
}
