package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ResourceType string

const (
	TypeFrontend     ResourceType = "frontend"
	TypeCDN          ResourceType = "cdn"
	TypeAuth         ResourceType = "auth"
	TypeAPI          ResourceType = "api"
	TypeLambda       ResourceType = "lambda"
	TypeWorkflow     ResourceType = "workflow"
	TypeQueue        ResourceType = "queue"
	TypeEvents       ResourceType = "events"
	TypeNotification ResourceType = "notification"
	TypeStream       ResourceType = "stream"
	TypeDatabase     ResourceType = "database"
	TypeStorage      ResourceType = "storage"
	TypeCatalog      ResourceType = "catalog"

	// network and compute types only matter to the stack splitter
	TypeVPC           ResourceType = "vpc"
	TypeSubnet        ResourceType = "subnet"
	TypeSecurityGroup ResourceType = "security-group"
	TypeCache         ResourceType = "cache"
	TypeECS           ResourceType = "ecs"
	TypeBatch         ResourceType = "batch"

	TypeUnknown ResourceType = "unknown"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Node struct {
	ID       string         `json:"id"`
	Type     ResourceType   `json:"type"`
	Label    string         `json:"label"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config,omitempty"`
}

// canvasNode is the shape the web canvas sends, with the payload nested under data.
type canvasNode struct {
	ID       string         `json:"id"`
	Type     ResourceType   `json:"type"`
	Label    string         `json:"label"`
	Position *Position      `json:"position"`
	Config   map[string]any `json:"config"`
	Data     *struct {
		Type   ResourceType   `json:"type"`
		Label  string         `json:"label"`
		Config map[string]any `json:"config"`
	} `json:"data"`
}

// UnmarshalJSON accepts both the flat node shape and the canvas shape.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw canvasNode
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*n = Node{ID: raw.ID, Type: raw.Type, Label: raw.Label, Config: raw.Config}
	if raw.Position != nil {
		n.Position = *raw.Position
	}
	if raw.Data != nil {
		if raw.Data.Type != "" {
			n.Type = raw.Data.Type
		}
		if raw.Data.Label != "" {
			n.Label = raw.Data.Label
		}
		if raw.Data.Config != nil {
			n.Config = raw.Data.Config
		}
	}
	return nil
}

// Flag reports whether a config key holds a truthy value. Numeric zero and
// the strings "false", "0", "no" and "off" (any case) are false.
func (n Node) Flag(key string) bool {
	switch v := n.Config[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "no", "off":
			return false
		}
		return true
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// Setting returns the config value under key as a string.
func (n Node) Setting(key string) string {
	v, ok := n.Config[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// EdgeID derives the canonical edge identifier.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

func NewEdge(source, target, label string) Edge {
	return Edge{ID: EdgeID(source, target), Source: source, Target: target, Label: label}
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func New() *Graph {
	return &Graph{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// AddNode appends the node unless its id is already taken.
func (g *Graph) AddNode(n Node) bool {
	if _, ok := g.Node(n.ID); ok {
		return false
	}
	g.Nodes = append(g.Nodes, n)
	return true
}

// AddEdge appends the edge unless its derived id is already present.
func (g *Graph) AddEdge(source, target, label string) bool {
	id := EdgeID(source, target)
	for _, e := range g.Edges {
		if e.ID == id {
			return false
		}
	}
	g.Edges = append(g.Edges, NewEdge(source, target, label))
	return true
}

func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasType reports whether any node resolves to t.
func (g *Graph) HasType(t ResourceType) bool {
	for _, n := range g.Nodes {
		if ResolveType(n) == t {
			return true
		}
	}
	return false
}

// CountByType counts nodes per resolved type.
func (g *Graph) CountByType() map[ResourceType]int {
	counts := make(map[ResourceType]int)
	for _, n := range g.Nodes {
		counts[ResolveType(n)]++
	}
	return counts
}

// Clone returns a deep copy so callers can mutate config maps freely.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n
		out.Nodes[i].Config = cloneConfig(n.Config)
	}
	copy(out.Edges, g.Edges)
	return out
}

func cloneConfig(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m, ok := v.(map[string]any); ok {
			out[k] = cloneConfig(m)
			continue
		}
		out[k] = v
	}
	return out
}

// Summary is the short text handed to the drafting collaborator.
func (g *Graph) Summary() string {
	if len(g.Nodes) == 0 {
		return "The architecture is empty."
	}
	s := fmt.Sprintf("%d nodes, %d edges.", len(g.Nodes), len(g.Edges))
	for _, n := range g.Nodes {
		s += fmt.Sprintf("\n- %s (%s): %s", n.ID, ResolveType(n), n.Label)
	}
	for _, e := range g.Edges {
		s += fmt.Sprintf("\n- %s -> %s", e.Source, e.Target)
		if e.Label != "" {
			s += " [" + e.Label + "]"
		}
	}
	return s
}
