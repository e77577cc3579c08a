package domain

import "math"

// TerminationReason explains why a node has no children. A node without a
// reason is an internal node (or a true leaf whose accepted set happened to be
// empty would carry ReasonNoValidMoves). The distinction between "no good
// moves", "deliberately not explored" and "evaluation failed" must survive
// serialization, so the reason is part of the node itself.
type TerminationReason string

const (
	// ReasonTenuki marks a move outside the mined region: noted but not explored.
	ReasonTenuki TerminationReason = "tenuki"
	// ReasonError marks a branch truncated by an engine failure.
	ReasonError TerminationReason = "error"
	// ReasonNoValidMoves marks a position where no candidate met the tolerances.
	ReasonNoValidMoves TerminationReason = "no_valid_moves"
	// ReasonMaxDepth marks the configured recursion safety bound.
	ReasonMaxDepth TerminationReason = "max_depth"
	// ReasonTransposition marks a board state already seen on the active path.
	ReasonTransposition TerminationReason = "transposition"
	// ReasonPass marks a pass move, which is never expanded.
	ReasonPass TerminationReason = "pass"
)

// TreeNode is one explored move. Winrate, score and visits describe the move
// that led to this node, as reported by the candidate that proposed it; for
// the root they describe the starting position itself. Children keep the
// engine's ranking order.
type TreeNode struct {
	Move               string            `json:"move" bson:"move"`
	Winrate            float64           `json:"winrate" bson:"winrate"`
	Score              float64           `json:"score" bson:"score"`
	Visits             int               `json:"visits" bson:"visits"`
	Children           []*TreeNode       `json:"children" bson:"children"`
	TerminatedReason   TerminationReason `json:"terminated_reason,omitempty" bson:"terminated_reason,omitempty"`
	UnstableEvaluation bool              `json:"unstable_evaluation,omitempty" bson:"unstable_evaluation,omitempty"`
}

// NewTreeNode builds a node for a move with the engine's raw numbers. Winrate
// is kept to four decimals and score to two, matching the output schema.
func NewTreeNode(move string, winrate, score float64, visits int) *TreeNode {
	return &TreeNode{
		Move:     move,
		Winrate:  round(winrate, 4),
		Score:    round(score, 2),
		Visits:   visits,
		Children: make([]*TreeNode, 0),
	}
}

// Terminate marks the node as a leaf with the given reason.
func (n *TreeNode) Terminate(reason TerminationReason) *TreeNode {
	n.TerminatedReason = reason
	return n
}

func round(x float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(x*pow) / pow
}

// RunSummary reports how one mining run ended. Truncated counts the
// error-terminated branches; a run with Truncated > 0 is not exhaustive and
// consumers must not treat it as such.
type RunSummary struct {
	NodesExpanded  int `json:"nodes_expanded" bson:"nodes_expanded"`
	TenukiLeaves   int `json:"tenuki_leaves" bson:"tenuki_leaves"`
	PassLeaves     int `json:"pass_leaves" bson:"pass_leaves"`
	NoValidMoves   int `json:"no_valid_moves" bson:"no_valid_moves"`
	MaxDepthLeaves int `json:"max_depth_leaves" bson:"max_depth_leaves"`
	Transpositions int `json:"transpositions" bson:"transpositions"`
	Truncated      int `json:"truncated" bson:"truncated"`
	UnstableNodes  int `json:"unstable_nodes" bson:"unstable_nodes"`
}

// MiningResult is the completed artifact for one starting position.
type MiningResult struct {
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	RootMoves   []Move     `json:"root_moves" bson:"root_moves"`
	Tree        *TreeNode  `json:"tree" bson:"tree"`
	Summary     RunSummary `json:"summary" bson:"summary"`
}
