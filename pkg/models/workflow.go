package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Definition represents a user-supplied workflow graph before compilation.
// The plan package turns a Definition into an immutable execution plan.
type Definition struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Version     int                    `json:"version"`
	EntryNodeID string                 `json:"entry_node_id,omitempty"`
	Nodes       []*Node                `json:"nodes"`
	Edges       []*Edge                `json:"edges"`
	Variables   map[string]interface{} `json:"variables,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Node represents a single node in the workflow graph.
type Node struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config"`
	Position    *Position              `json:"position,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Position represents the visual position of a node in the editor.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge represents a directed edge between two node ports.
type Edge struct {
	ID         string                 `json:"id"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	SourcePort string                 `json:"source_port,omitempty"`
	TargetPort string                 `json:"target_port,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Well-known port names.
const (
	PortTrue  = "true"
	PortFalse = "false"
	PortError = "error"
)

// Node metadata keys understood by the builder.
const (
	// MetadataEntryPoint marks a detached root as an additional entry point.
	MetadataEntryPoint = "entry_point"
)

// IsErrorPort returns true if the edge leaves through the source node's error port.
func (e *Edge) IsErrorPort() bool { return e.SourcePort == PortError }

// Validate validates the definition structure.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}

	if len(d.Nodes) == 0 {
		return &ValidationError{Field: "nodes", Message: "at least one node is required"}
	}

	nodeIDs := make(map[string]bool)
	for _, node := range d.Nodes {
		if err := node.Validate(); err != nil {
			return err
		}

		if nodeIDs[node.ID] {
			return &ValidationError{Field: "nodes", Message: fmt.Sprintf("duplicate node ID: %s", node.ID)}
		}
		nodeIDs[node.ID] = true
	}

	for _, edge := range d.Edges {
		if err := edge.Validate(); err != nil {
			return err
		}
	}

	if d.EntryNodeID != "" && !nodeIDs[d.EntryNodeID] {
		return &ValidationError{Field: "entry_node_id", Message: fmt.Sprintf("entry node does not exist: %s", d.EntryNodeID)}
	}

	return nil
}

// Validate validates the node structure.
func (n *Node) Validate() error {
	if n.ID == "" {
		return &ValidationError{Field: "id", Message: "node ID is required"}
	}

	if n.Type == "" {
		return &ValidationError{Field: "type", Message: "node type is required"}
	}

	return nil
}

// Validate validates the edge structure. Endpoint existence is checked by the
// builder, which drops dangling edges with a warning instead of failing.
func (e *Edge) Validate() error {
	if e.From == "" {
		return &ValidationError{Field: "from", Message: "edge source is required"}
	}

	if e.To == "" {
		return &ValidationError{Field: "to", Message: "edge target is required"}
	}

	return nil
}

// IsAdditionalEntryPoint reports whether the node is marked as an extra entry
// point via metadata.
func (n *Node) IsAdditionalEntryPoint() bool {
	if n.Metadata == nil {
		return false
	}
	v, ok := n.Metadata[MetadataEntryPoint]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// GetNode returns a node by ID.
func (d *Definition) GetNode(nodeID string) (*Node, error) {
	for _, node := range d.Nodes {
		if node.ID == nodeID {
			return node, nil
		}
	}
	return nil, ErrNodeNotFound
}

// AddNode adds a node to the definition.
func (d *Definition) AddNode(node *Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	for _, n := range d.Nodes {
		if n.ID == node.ID {
			return &ValidationError{Field: "id", Message: "node ID already exists"}
		}
	}

	d.Nodes = append(d.Nodes, node)
	d.UpdatedAt = time.Now()
	return nil
}

// AddEdge adds an edge to the definition.
func (d *Definition) AddEdge(edge *Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	if _, err := d.GetNode(edge.From); err != nil {
		return &ValidationError{Field: "from", Message: "source node does not exist"}
	}

	if _, err := d.GetNode(edge.To); err != nil {
		return &ValidationError{Field: "to", Message: "target node does not exist"}
	}

	d.Edges = append(d.Edges, edge)
	d.UpdatedAt = time.Now()
	return nil
}

// Clone creates a deep copy of the definition.
func (d *Definition) Clone() (*Definition, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var clone Definition
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}

	return &clone, nil
}
