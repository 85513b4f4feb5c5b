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

package windows

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pagedtable/adapters/deltasharing"
)

// NavigationTree shows the shares, schemas and tables of one profile.
type NavigationTree struct {
	mu      sync.RWMutex
	tree    *deltasharing.Tree
	catalog *deltasharing.Catalog
	widget  *widget.Tree

	// OnTable is called when a table node is selected.
	OnTable func(*deltasharing.Catalog, deltasharing.Table)
}

// NewNavigationTree creates an empty tree.
func NewNavigationTree() *NavigationTree {
	nt := &NavigationTree{tree: deltasharing.BuildTree(nil)}
	nt.widget = widget.NewTree(nt.GetChildren, nt.IsBranch,
		func(bool) fyne.CanvasObject {
			return container.NewHBox(widget.NewIcon(theme.FolderIcon()), widget.NewLabel("template"))
		},
		nt.UpdateNodeDisplay,
	)
	nt.widget.OnSelected = func(id widget.TreeNodeID) {
		node := nt.GetNode(id)
		if node == nil || node.Type != deltasharing.NodeTypeTable {
			nt.widget.ToggleBranch(id)
			return
		}
		nt.mu.RLock()
		catalog := nt.catalog
		nt.mu.RUnlock()
		if nt.OnTable != nil && catalog != nil {
			nt.OnTable(catalog, node.Table)
		}
	}
	return nt
}

// Widget returns the tree's canvas object.
func (nt *NavigationTree) Widget() fyne.CanvasObject { return nt.widget }

// LoadShares lists every table of catalog and rebuilds the tree. It may
// be called off the UI goroutine; the widget is refreshed through fyne.Do.
func (nt *NavigationTree) LoadShares(ctx context.Context, catalog *deltasharing.Catalog) (int, error) {
	tables, err := catalog.Tables(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list all tables: %w", err)
	}
	tr := deltasharing.BuildTree(tables)

	nt.mu.Lock()
	nt.tree = tr
	nt.catalog = catalog
	nt.mu.Unlock()

	fyne.Do(func() {
		nt.widget.UnselectAll()
		nt.widget.Refresh()
		nt.widget.OpenAllBranches()
	})
	return len(tables), nil
}

// GetChildren returns the child node IDs for a given parent node.
// Returns root nodes if nodeID is empty.
func (nt *NavigationTree) GetChildren(nodeID widget.TreeNodeID) []widget.TreeNodeID {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	return nt.tree.Children(nodeID)
}

// IsBranch returns true if the node can have children.
func (nt *NavigationTree) IsBranch(nodeID widget.TreeNodeID) bool {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	return nt.tree.IsBranch(nodeID)
}

// GetNode retrieves a node by ID.
func (nt *NavigationTree) GetNode(nodeID widget.TreeNodeID) *deltasharing.Node {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	return nt.tree.Nodes[nodeID]
}

// UpdateNodeDisplay updates the visual representation of a tree node.
func (nt *NavigationTree) UpdateNodeDisplay(nodeID widget.TreeNodeID, _ bool, obj fyne.CanvasObject) {
	node := nt.GetNode(nodeID)
	if node == nil {
		return
	}
	box, ok := obj.(*fyne.Container)
	if !ok || len(box.Objects) < 2 {
		return
	}

	if icon, ok := box.Objects[0].(*widget.Icon); ok {
		switch node.Type {
		case deltasharing.NodeTypeShare:
			icon.SetResource(theme.FolderOpenIcon())
		case deltasharing.NodeTypeSchema:
			icon.SetResource(theme.FolderIcon())
		case deltasharing.NodeTypeTable:
			icon.SetResource(theme.GridIcon())
		}
	}
	if label, ok := box.Objects[1].(*widget.Label); ok {
		label.SetText(node.Name)
	}
}
