package classifier

import (
	"fmt"

	"GenreFM/core/features"
)

// ForestSpec is a decision-tree ensemble.
type ForestSpec struct {
	Trees []Tree `json:"trees" yaml:"trees" msgpack:"trees"`
}

// Tree is a flat binary tree; node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes" msgpack:"nodes"`
}

// Node is a split when Left and Right are set, otherwise a leaf voting for
// the class at position Class.
type Node struct {
	Feature   int     `json:"feature" yaml:"feature" msgpack:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold" msgpack:"threshold"`
	Left      int     `json:"left" yaml:"left" msgpack:"left"`
	Right     int     `json:"right" yaml:"right" msgpack:"right"`
	Class     int     `json:"class" yaml:"class" msgpack:"class"`
}

func (n Node) leaf() bool {
	return n.Left <= 0 && n.Right <= 0
}

func (f *ForestSpec) validate(numClasses int) error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrSchema)
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrSchema, t)
		}
		for i, n := range tree.Nodes {
			if n.leaf() {
				if n.Class < 0 || n.Class >= numClasses {
					return fmt.Errorf("%w: tree %d node %d votes for class position %d of %d", ErrSchema, t, i, n.Class, numClasses)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= features.NumFields {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d", ErrSchema, t, i, n.Feature)
			}
			// children must point forward, which also rules out cycles
			if n.Left <= i || n.Right <= i || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("%w: tree %d node %d has children %d/%d out of range", ErrSchema, t, i, n.Left, n.Right)
			}
		}
	}
	return nil
}

type forest struct {
	trees      []Tree
	numClasses int
}

func newForest(spec *ForestSpec, numClasses int) *forest {
	return &forest{trees: spec.Trees, numClasses: numClasses}
}

// Predict returns the majority vote; ties go to the lowest class position.
// Scores are vote fractions.
func (f *forest) Predict(x []float64) (int, []float64, error) {
	if len(x) != features.NumFields {
		return 0, nil, fmt.Errorf("%w: expected %d features, got %d", ErrPrediction, features.NumFields, len(x))
	}
	votes := make([]int, f.numClasses)
	for _, tree := range f.trees {
		votes[tree.eval(x)]++
	}

	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	scores := make([]float64, len(votes))
	for c, v := range votes {
		scores[c] = float64(v) / float64(len(f.trees))
	}
	return best, scores, nil
}

func (t Tree) eval(x []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.leaf() {
			return n.Class
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
