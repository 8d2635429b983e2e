package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incomeinsight/ml"
)

const sampleCSV = `age,education,marital_status,occupation,sex,hours_per_week,capital_gain,capital_loss,income
45,Bachelors,Married-civ-spouse,Exec-managerial,Male,50,5000,0,>50K
22,HS-grad,Never-married,Handlers-cleaners,Female,20,0,0,<=50K.
30,Some-college,Never-married,Sales,Female,40,0,0,>50K
`

func loadTestdata(t *testing.T) *ml.Artifacts {
	t.Helper()
	a, err := ml.LoadArtifacts(ml.ArtifactPaths{
		Dir:                 "../../ml/testdata",
		ModelType:           ml.ModelTypeRandomForest,
		ModelFile:           "model.json",
		ScalerFile:          "scaler.json",
		EncodersFile:        "encoders.json",
		RequireFeatureOrder: true,
	})
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	return a
}

func TestEvaluateModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, labels, err := readLabelledProfiles(path)
	if err != nil {
		t.Fatalf("readLabelledProfiles: %v", err)
	}
	if len(profiles) != 3 || labels[1] != "<=50K" {
		t.Fatalf("unexpected rows: %v %v", profiles, labels)
	}

	accuracy, precision, recall := evaluateModel(loadTestdata(t), profiles, labels)
	if accuracy < 0.66 || accuracy > 0.67 {
		t.Errorf("expected accuracy 2/3, got %.3f", accuracy)
	}
	if precision != 1 {
		t.Errorf("expected precision 1, got %.2f", precision)
	}
	if recall != 0.5 {
		t.Errorf("expected recall 0.5, got %.2f", recall)
	}
}

func TestReadLabelledProfilesParsesDecimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeros.csv")
	csv := "age,education,marital_status,occupation,sex,hours_per_week,capital_gain,capital_loss,income\n" +
		"045,Bachelors,Never-married,Sales,Male,040,05000,0,<=50K\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	profiles, _, err := readLabelledProfiles(path)
	if err != nil {
		t.Fatalf("readLabelledProfiles: %v", err)
	}
	if p := profiles[0]; p.Age != 45 || p.HoursPerWeek != 40 || p.CapitalGain != 5000 {
		t.Errorf("expected decimal parsing, got %+v", p)
	}

	hex := strings.Replace(csv, "045,", "0x20,", 1)
	if err := os.WriteFile(path, []byte(hex), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readLabelledProfiles(path); err == nil {
		t.Error("expected hex age to be rejected")
	}
}

func TestReadLabelledProfilesMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("age,education\n45,Bachelors\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := readLabelledProfiles(path); err == nil {
		t.Fatal("expected missing column error")
	}
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	describe(&buf, loadTestdata(t))
	out := buf.String()
	if !strings.Contains(out, "feature order: age, education") || !strings.Contains(out, "declared") {
		t.Errorf("unexpected description:\n%s", out)
	}
}
