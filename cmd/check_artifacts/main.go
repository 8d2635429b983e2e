package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"incomeinsight/ml"
)

func main() {
	dir := flag.String("dir", "artifacts", "artifact directory")
	modelType := flag.String("model_type", ml.ModelTypeRandomForest, "model type")
	allowImplicit := flag.Bool("allow_implicit_order", false, "accept models without a declared feature order")
	dataPath := flag.String("data", "", "optional labelled CSV to score")
	flag.Parse()

	artifacts, err := ml.LoadArtifacts(ml.ArtifactPaths{
		Dir:                 *dir,
		ModelType:           *modelType,
		ModelFile:           "model.json",
		ScalerFile:          "scaler.json",
		EncodersFile:        "encoders.json",
		RequireFeatureOrder: !*allowImplicit,
	})
	if err != nil {
		log.Fatalf("artifacts rejected: %v", err)
	}

	describe(os.Stdout, artifacts)

	if *dataPath == "" {
		return
	}
	profiles, labels, err := readLabelledProfiles(*dataPath)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *dataPath, err)
	}
	accuracy, precision, recall := evaluateModel(artifacts, profiles, labels)
	fmt.Printf("rows=%d accuracy=%.2f precision=%.2f recall=%.2f\n", len(profiles), accuracy, precision, recall)
}

func describe(w io.Writer, a *ml.Artifacts) {
	fmt.Fprintf(w, "model type:    %s\n", a.ModelType)
	order := "declared"
	if a.ImplicitOrder {
		order = "implicit (assembly order)"
	}
	fmt.Fprintf(w, "feature order: %s, %s\n", strings.Join(a.Preparer.Order(), ", "), order)
	for _, field := range a.Encoders.Fields() {
		encoder, _ := a.Encoders.Get(field)
		fmt.Fprintf(w, "  %-15s %d classes, first %q\n", field, len(encoder.Classes()), encoder.Classes()[0])
	}
}

var csvColumns = []string{
	ml.FeatureAge, ml.FeatureEducation, ml.FeatureMaritalStatus, ml.FeatureOccupation,
	ml.FeatureSex, ml.FeatureHoursPerWeek, ml.FeatureCapitalGain, ml.FeatureCapitalLoss, ml.IncomeField,
}

// readLabelledProfiles 读取带表头的 CSV，列名见 csvColumns
func readLabelledProfiles(path string) ([]ml.Profile, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", col)
		}
	}

	var profiles []ml.Profile
	var labels []string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		get := func(col string) string { return strings.TrimSpace(record[index[col]]) }
		p := ml.Profile{
			Education:     get(ml.FeatureEducation),
			MaritalStatus: get(ml.FeatureMaritalStatus),
			Occupation:    get(ml.FeatureOccupation),
			Sex:           get(ml.FeatureSex),
		}
		for col, dst := range map[string]*int{
			ml.FeatureAge:          &p.Age,
			ml.FeatureHoursPerWeek: &p.HoursPerWeek,
			ml.FeatureCapitalGain:  &p.CapitalGain,
			ml.FeatureCapitalLoss:  &p.CapitalLoss,
		} {
			if *dst, err = strconv.Atoi(get(col)); err != nil {
				return nil, nil, fmt.Errorf("line %d: %s: %w", line, col, err)
			}
		}
		profiles = append(profiles, p)
		labels = append(labels, strings.TrimSuffix(get(ml.IncomeField), "."))
	}
	return profiles, labels, nil
}

// evaluateModel 以高收入类别为正类
func evaluateModel(a *ml.Artifacts, profiles []ml.Profile, labels []string) (accuracy, precision, recall float64) {
	if len(profiles) == 0 {
		return 0, 0, 0
	}
	positive := ml.HighIncomeLabel

	var correct int
	var truePositive int
	var predictedPositive int
	var actualPositive int

	for i, profile := range profiles {
		features := a.Preparer.Prepare(profile)
		prediction, err := a.Predictor.Predict(features.Scaled)
		if err != nil {
			continue
		}
		if prediction.Label == labels[i] {
			correct++
		}
		if prediction.Label == positive {
			predictedPositive++
		}
		if labels[i] == positive {
			actualPositive++
			if prediction.Label == positive {
				truePositive++
			}
		}
	}

	accuracy = float64(correct) / float64(len(profiles))
	if predictedPositive > 0 {
		precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		recall = float64(truePositive) / float64(actualPositive)
	}
	return accuracy, precision, recall
}
