// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package deltasharing

import "sort"

// NodeType represents the type of node in the share tree
type NodeType int

const (
	NodeTypeShare NodeType = iota
	NodeTypeSchema
	NodeTypeTable
)

// Node is one entry of the share/schema/table hierarchy.
type Node struct {
	ID       string
	Type     NodeType
	Name     string
	Table    Table // set for table nodes
	Children []string
}

// Tree indexes nodes by ID. Roots are the shares.
type Tree struct {
	Roots []string
	Nodes map[string]*Node
}

// NodeID builds a stable identifier for a node.
func NodeID(t NodeType, share, schema, table string) string {
	switch t {
	case NodeTypeShare:
		return "share:" + share
	case NodeTypeSchema:
		return "schema:" + share + "." + schema
	default:
		return "table:" + share + "." + schema + "." + table
	}
}

// BuildTree groups tables under their schemas and shares, sorted by name.
func BuildTree(tables []Table) *Tree {
	tr := &Tree{Nodes: make(map[string]*Node)}

	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		return TableURL(sorted[i]) < TableURL(sorted[j])
	})

	for _, t := range sorted {
		shareID := NodeID(NodeTypeShare, t.Share, "", "")
		share, ok := tr.Nodes[shareID]
		if !ok {
			share = &Node{ID: shareID, Type: NodeTypeShare, Name: t.Share}
			tr.Nodes[shareID] = share
			tr.Roots = append(tr.Roots, shareID)
		}

		schemaID := NodeID(NodeTypeSchema, t.Share, t.Schema, "")
		schema, ok := tr.Nodes[schemaID]
		if !ok {
			schema = &Node{ID: schemaID, Type: NodeTypeSchema, Name: t.Schema}
			tr.Nodes[schemaID] = schema
			share.Children = append(share.Children, schemaID)
		}

		tableID := NodeID(NodeTypeTable, t.Share, t.Schema, t.Name)
		if _, dup := tr.Nodes[tableID]; dup {
			continue
		}
		tr.Nodes[tableID] = &Node{ID: tableID, Type: NodeTypeTable, Name: t.Name, Table: t}
		schema.Children = append(schema.Children, tableID)
	}
	return tr
}

// Children returns the child IDs of id, or the roots for "".
func (tr *Tree) Children(id string) []string {
	if id == "" {
		return tr.Roots
	}
	if n, ok := tr.Nodes[id]; ok {
		return n.Children
	}
	return nil
}

// IsBranch reports whether id can have children.
func (tr *Tree) IsBranch(id string) bool {
	if id == "" {
		return true
	}
	n, ok := tr.Nodes[id]
	return ok && n.Type != NodeTypeTable
}
