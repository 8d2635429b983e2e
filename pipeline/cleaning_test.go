package pipeline

import (
	"testing"

	"incomeinsight/ml"
)

func TestNewProfileCleaner(t *testing.T) {
	cleaner := NewProfileCleaner()
	if cleaner == nil {
		t.Fatal("NewProfileCleaner returned nil")
	}

	if len(cleaner.rules) == 0 {
		t.Error("No default rules added")
	}
}

func TestRangeRule(t *testing.T) {
	rule := NewRangeRule()

	tests := []struct {
		name       string
		profile    ml.Profile
		want       ml.Profile
		wantIssues int
	}{
		{
			name:       "valid profile",
			profile:    ml.Profile{Age: 45, HoursPerWeek: 50, CapitalGain: 5000},
			want:       ml.Profile{Age: 45, HoursPerWeek: 50, CapitalGain: 5000},
			wantIssues: 0,
		},
		{
			name:       "age too low",
			profile:    ml.Profile{Age: 12, HoursPerWeek: 40},
			want:       ml.Profile{Age: 18, HoursPerWeek: 40},
			wantIssues: 1,
		},
		{
			name:       "everything too high",
			profile:    ml.Profile{Age: 120, HoursPerWeek: 168, CapitalGain: 1000000, CapitalLoss: 100000},
			want:       ml.Profile{Age: 90, HoursPerWeek: 100, CapitalGain: 99999, CapitalLoss: 99999},
			wantIssues: 4,
		},
		{
			name:       "zero hours and negative loss",
			profile:    ml.Profile{Age: 30, HoursPerWeek: 0, CapitalLoss: -5},
			want:       ml.Profile{Age: 30, HoursPerWeek: 1, CapitalLoss: 0},
			wantIssues: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := tt.profile
			issues := rule.Apply(&profile)
			if len(issues) != tt.wantIssues {
				t.Errorf("expected %d issues, got %d: %+v", tt.wantIssues, len(issues), issues)
			}
			if profile != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, profile)
			}
		})
	}
}

func TestProfileCleanerTrimsAndLeavesInputUntouched(t *testing.T) {
	cleaner := NewProfileCleaner()
	input := ml.Profile{
		Age:           200,
		Sex:           " Male ",
		Education:     "Bachelors",
		MaritalStatus: "Never-married\n",
		Occupation:    "Sales",
		HoursPerWeek:  40,
	}

	cleaned, issues := cleaner.Clean(input)

	if cleaned.Sex != "Male" || cleaned.MaritalStatus != "Never-married" {
		t.Errorf("whitespace not trimmed: %+v", cleaned)
	}
	if cleaned.Age != 90 {
		t.Errorf("expected age clamped to 90, got %d", cleaned.Age)
	}
	if len(issues) != 3 {
		t.Errorf("expected 3 issues, got %d: %+v", len(issues), issues)
	}
	if input.Sex != " Male " || input.Age != 200 {
		t.Errorf("input profile was modified: %+v", input)
	}
}
