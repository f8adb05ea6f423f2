package docsystem

import (
	"sort"
	"time"
)

// TreeNode is a document in the nested tree (metadata only, no content)
type TreeNode struct {
	ID        string      `json:"id"`
	ParentID  *string     `json:"parent_id"`
	Title     string      `json:"title"`
	Level     int         `json:"level"`
	SortOrder int         `json:"sort_order"`
	UpdatedAt time.Time   `json:"updated_at"`
	Children  []*TreeNode `json:"children"` // Pointers for proper nesting
}

// BuildTree nests a flat document list by parent_id.
// Input must be ordered parents-before-children (tree_path order), which is what
// TreeStore.GetTree returns. Children keep sort_order order.
// Documents whose parent is absent from the list (e.g. parent trashed) are dropped.
func BuildTree(docs []Document) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(docs))
	roots := []*TreeNode{}

	for i := range docs {
		doc := &docs[i]
		node := &TreeNode{
			ID:        doc.ID,
			ParentID:  doc.ParentID,
			Title:     doc.Title,
			Level:     doc.Level,
			SortOrder: doc.SortOrder,
			UpdatedAt: doc.UpdatedAt,
			Children:  []*TreeNode{},
		}

		if doc.IsRoot() {
			nodes[doc.ID] = node
			roots = append(roots, node)
			continue
		}

		parent, ok := nodes[*doc.ParentID]
		if !ok {
			continue
		}
		nodes[doc.ID] = node
		parent.Children = append(parent.Children, node)
	}

	sortNodes(roots)
	return roots
}

// sortNodes orders siblings by sort_order, recursively.
// tree_path ordering groups subtrees but orders siblings by id, so siblings need a pass.
func sortNodes(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
