package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RandomForest is an exported ensemble of DecisionTrees combined by
// majority vote.
type RandomForest struct {
	trees        []*DecisionTree
	featureNames []string
	classes      []string
}

type randomForestFile struct {
	FeatureNames []string     `json:"feature_names"`
	Classes      []string     `json:"classes"`
	Trees        [][]TreeNode `json:"trees"`
}

func NewRandomForest(trees []*DecisionTree, featureNames []string) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	return &RandomForest{
		trees:        trees,
		featureNames: append([]string(nil), featureNames...),
	}, nil
}

func (rf *RandomForest) FeatureNames() []string {
	if len(rf.featureNames) == 0 {
		return nil
	}
	return append([]string(nil), rf.featureNames...)
}

// Classes returns the class labels recorded in the artifact, if any.
func (rf *RandomForest) Classes() []string {
	return append([]string(nil), rf.classes...)
}

func (rf *RandomForest) NumTrees() int {
	return len(rf.trees)
}

// Predict returns the majority class. Ties go to the lowest class index.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	if len(rf.trees) == 0 {
		return 0, 0, errors.New("model not loaded")
	}
	if len(rf.featureNames) > 0 && len(features) != len(rf.featureNames) {
		return 0, 0, fmt.Errorf("expected %d features, got %d", len(rf.featureNames), len(features))
	}
	votes := make(map[int]int)
	for i, tree := range rf.trees {
		label, _, err := tree.Predict(features)
		if err != nil {
			return 0, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		votes[label]++
	}
	best, bestVotes := 0, -1
	for label, n := range votes {
		if n > bestVotes || (n == bestVotes && label < best) {
			best, bestVotes = label, n
		}
	}
	return best, float64(bestVotes) / float64(len(rf.trees)), nil
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file randomForestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("decode forest %s: %w", path, err)
	}
	if len(file.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	trees := make([]*DecisionTree, len(file.Trees))
	for i, nodes := range file.Trees {
		tree, err := NewDecisionTree(nodes, file.FeatureNames)
		if err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		trees[i] = tree
	}
	rf.trees = trees
	rf.featureNames = file.FeatureNames
	rf.classes = file.Classes
	return nil
}
