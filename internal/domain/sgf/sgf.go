// Package sgf renders mined joseki trees as SGF game records, with each
// accepted move branching into its own variation.
package sgf

import (
	"fmt"
	"strings"

	"josekiminer/internal/domain"
)

// GameTree is one SGF tree: a node sequence plus variations.
type GameTree struct {
	Nodes    []Node
	Children []*GameTree
}

// Node is one SGF node, a property set such as B[pd] or C[...].
type Node struct {
	Properties map[string][]string
}

// SGF is the root element of an SGF file.
type SGF struct {
	Root *GameTree
}

// FromResult converts a mining result into an SGF record. The setup moves
// become the trunk; the tolerance band at each position becomes sibling
// variations, annotated with the engine's numbers and the termination reason.
func FromResult(result *domain.MiningResult) *SGF {
	root := &GameTree{
		Nodes: []Node{{Properties: map[string][]string{
			"FF": {"4"},
			"GM": {"1"},
			"SZ": {fmt.Sprintf("%d", domain.BoardSize)},
			"GN": {result.Name},
		}}},
	}

	for _, m := range result.RootMoves {
		root.Nodes = append(root.Nodes, moveNode(m.Color, m.Coordinates, ""))
	}

	color := domain.NextColor(result.RootMoves)
	for _, child := range result.Tree.Children {
		root.Children = append(root.Children, variation(child, color))
	}
	return &SGF{Root: root}
}

func variation(node *domain.TreeNode, color string) *GameTree {
	comment := fmt.Sprintf("winrate %.4f, score %.2f, visits %d", node.Winrate, node.Score, node.Visits)
	if node.TerminatedReason != "" {
		comment += ", " + string(node.TerminatedReason)
	}

	tree := &GameTree{Nodes: []Node{moveNode(color, node.Move, comment)}}

	next := domain.Black
	if color == domain.Black {
		next = domain.White
	}
	for _, child := range node.Children {
		tree.Children = append(tree.Children, variation(child, next))
	}
	return tree
}

func moveNode(color, move, comment string) Node {
	props := map[string][]string{
		color: {sgfPoint(move)},
	}
	if comment != "" {
		props["C"] = []string{comment}
	}
	return Node{Properties: props}
}

// sgfPoint converts "Q16" to SGF's two-letter form. SGF columns include "i"
// and rows count from the top.
func sgfPoint(move string) string {
	col, row, ok := domain.ParseCoordinate(move)
	if !ok {
		return "" // empty point is SGF for pass
	}
	return string([]byte{'a' + byte(col), 'a' + byte(domain.BoardSize-row)})
}

// Marshal renders the SGF text form.
func (s *SGF) Marshal() string {
	var b strings.Builder
	writeTree(&b, s.Root)
	return b.String()
}

func writeTree(b *strings.Builder, tree *GameTree) {
	b.WriteByte('(')
	for _, node := range tree.Nodes {
		writeNode(b, node)
	}
	for _, child := range tree.Children {
		writeTree(b, child)
	}
	b.WriteByte(')')
}

// property order is fixed so output is deterministic
var propertyOrder = []string{"FF", "GM", "SZ", "GN", "B", "W", "C"}

func writeNode(b *strings.Builder, node Node) {
	b.WriteByte(';')
	for _, key := range propertyOrder {
		values, ok := node.Properties[key]
		if !ok {
			continue
		}
		b.WriteString(key)
		for _, v := range values {
			b.WriteByte('[')
			b.WriteString(escapeValue(v))
			b.WriteByte(']')
		}
	}
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	return strings.ReplaceAll(v, "]", "\\]")
}
