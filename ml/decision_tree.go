package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type DecisionTree struct {
	nodes        []TreeNode
	featureNames []string
}

// TreeNode is one entry of a flattened tree. Children are indexes into the
// same slice; leaves carry the class label and optionally per-class counts.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Counts     []float64 `json:"counts,omitempty"`
}

type decisionTreeFile struct {
	FeatureNames []string   `json:"feature_names"`
	Nodes        []TreeNode `json:"nodes"`
}

func NewDecisionTree(nodes []TreeNode, featureNames []string) (*DecisionTree, error) {
	dt := &DecisionTree{
		nodes:        append([]TreeNode(nil), nodes...),
		featureNames: append([]string(nil), featureNames...),
	}
	if err := dt.validate(); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) FeatureNames() []string {
	if len(dt.featureNames) == 0 {
		return nil
	}
	return append([]string(nil), dt.featureNames...)
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.nodes) == 0 {
		return 0, 0, errors.New("model not loaded")
	}
	idx := 0
	// A valid tree reaches a leaf in at most len(nodes) steps.
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, leafConfidence(node), nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, fmt.Errorf("feature index %d out of range for %d features", node.FeatureIdx, len(features))
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
	return 0, 0, errors.New("tree contains a cycle")
}

// Load accepts either the bare node array or an object with feature names.
func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file decisionTreeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		var nodes []TreeNode
		if err2 := json.Unmarshal(payload, &nodes); err2 != nil {
			return fmt.Errorf("decode tree %s: %w", path, err)
		}
		file.Nodes = nodes
	}
	dt.nodes = file.Nodes
	dt.featureNames = file.FeatureNames
	return dt.validate()
}

func (dt *DecisionTree) validate() error {
	if len(dt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.nodes) ||
			node.RightChild <= i || node.RightChild >= len(dt.nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, node.LeftChild, node.RightChild)
		}
		if node.FeatureIdx < 0 {
			return fmt.Errorf("node %d has negative feature index", i)
		}
		if len(dt.featureNames) > 0 && node.FeatureIdx >= len(dt.featureNames) {
			return fmt.Errorf("node %d splits on feature %d, model declares %d", i, node.FeatureIdx, len(dt.featureNames))
		}
	}
	return nil
}

func leafConfidence(node TreeNode) float64 {
	if node.ClassLabel < 0 || node.ClassLabel >= len(node.Counts) {
		return 1
	}
	var total float64
	for _, c := range node.Counts {
		total += c
	}
	if total <= 0 {
		return 1
	}
	return node.Counts[node.ClassLabel] / total
}
