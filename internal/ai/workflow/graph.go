// Package workflow runs the AI sourcing pipeline: an analyst node studies the
// vacancy, a sourcer node searches for candidates, and every step is priced,
// logged and streamed to the vacancy's live channel.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recruitment-platform/internal/ai/llm"

	"github.com/google/uuid"
)

// State is passed from node to node. Messages accumulate in order; each node
// appends its tool results and its own answer.
type State struct {
	VacancyID   uuid.UUID      `json:"vacancy_id"`
	Messages    []llm.Message  `json:"messages"`
	Context     map[string]any `json:"context"`
	Outputs     map[string]any `json:"outputs"`
	ToolResults map[string]any `json:"tool_results"`
	FinalOutput map[string]any `json:"final_output"`
}

// NewState creates the initial state for a run over vacancyID
func NewState(vacancyID uuid.UUID, context map[string]any) *State {
	if context == nil {
		context = map[string]any{}
	}
	return &State{
		VacancyID:   vacancyID,
		Context:     context,
		Outputs:     map[string]any{},
		ToolResults: map[string]any{},
	}
}

// TenantID reads the tenant from the state context
func (s *State) TenantID() (uuid.UUID, bool) {
	switch v := s.Context["tenant_id"].(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil
	}
	return uuid.Nil, false
}

// Output returns the content a node produced, or ""
func (s *State) Output(node string) string {
	out, _ := s.Outputs[node].(string)
	return out
}

// Node is one step of a graph
type Node struct {
	Name  string
	Tools []string
	Run   func(ctx context.Context, state *State, m *Monitor) error
}

// Graph runs its nodes in order
type Graph struct {
	Name  string
	nodes []Node
}

var ErrEmptyGraph = errors.New("graph has no nodes")

// NewGraph creates an empty graph
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// AddNode appends a node; names must be unique
func (g *Graph) AddNode(n Node) error {
	if n.Name == "" || n.Run == nil {
		return fmt.Errorf("node needs a name and a run function")
	}
	for _, existing := range g.nodes {
		if existing.Name == n.Name {
			return fmt.Errorf("node %q already exists", n.Name)
		}
	}
	g.nodes = append(g.nodes, n)
	return nil
}

// NodeNames returns the node names in execution order
func (g *Graph) NodeNames() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name
	}
	return names
}

// Run executes every node against state. The first failing node stops the
// run and its error is returned wrapped with the node name. m may be nil.
func (g *Graph) Run(ctx context.Context, state *State, m *Monitor) error {
	if len(g.nodes) == 0 {
		return ErrEmptyGraph
	}

	m.Emit(ctx, EventStatus, "", "Workflow started")
	for _, n := range g.nodes {
		if err := ctx.Err(); err != nil {
			m.Emit(ctx, EventError, n.Name, err.Error())
			return err
		}

		started := time.Now()
		if err := n.Run(ctx, state, m); err != nil {
			err = fmt.Errorf("node %s: %w", n.Name, err)
			m.Emit(ctx, EventError, n.Name, err.Error())
			return err
		}
		m.Emit(ctx, EventNodeEnd, n.Name, fmt.Sprintf("Node %s finished in %s", n.Name, time.Since(started).Round(time.Millisecond)))
	}
	m.Emit(ctx, EventSuccess, "", "Workflow completed")
	return nil
}
