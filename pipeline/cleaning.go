package pipeline

import (
	"fmt"
	"strings"

	"incomeinsight/ml"
)

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(*ml.Profile) []QualityIssue
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Rule     string `json:"rule"`
	Field    string `json:"field"`
	Severity string `json:"severity"` // low, medium
	Message  string `json:"message"`
}

// ProfileCleaner 在特征准备之前修正表单输入
// 数值越界会被截断到允许范围，不会被拒绝
type ProfileCleaner struct {
	rules []CleaningRule
}

// NewProfileCleaner 创建带默认规则的清洗器
func NewProfileCleaner() *ProfileCleaner {
	cleaner := &ProfileCleaner{}
	cleaner.AddRule(NewWhitespaceRule())
	cleaner.AddRule(NewRangeRule())
	return cleaner
}

// AddRule 添加清洗规则
func (pc *ProfileCleaner) AddRule(rule CleaningRule) {
	pc.rules = append(pc.rules, rule)
}

// Clean 返回修正后的副本和发现的问题
func (pc *ProfileCleaner) Clean(profile ml.Profile) (ml.Profile, []QualityIssue) {
	cleaned := profile
	var issues []QualityIssue
	for _, rule := range pc.rules {
		issues = append(issues, rule.Apply(&cleaned)...)
	}
	return cleaned, issues
}

// ============ 清洗规则实现 ============

// RangeRule 数值范围规则
type RangeRule struct {
	fields []rangeField
}

type rangeField struct {
	name   string
	bounds ml.Range
	value  func(*ml.Profile) *int
}

func NewRangeRule() *RangeRule {
	return &RangeRule{fields: []rangeField{
		{ml.FeatureAge, ml.AgeRange, func(p *ml.Profile) *int { return &p.Age }},
		{ml.FeatureHoursPerWeek, ml.HoursPerWeekRange, func(p *ml.Profile) *int { return &p.HoursPerWeek }},
		{ml.FeatureCapitalGain, ml.CapitalRange, func(p *ml.Profile) *int { return &p.CapitalGain }},
		{ml.FeatureCapitalLoss, ml.CapitalRange, func(p *ml.Profile) *int { return &p.CapitalLoss }},
	}}
}

func (r *RangeRule) Name() string {
	return "range"
}

func (r *RangeRule) Apply(profile *ml.Profile) []QualityIssue {
	var issues []QualityIssue
	for _, f := range r.fields {
		v := f.value(profile)
		if f.bounds.Contains(*v) {
			continue
		}
		clamped := f.bounds.Clamp(*v)
		issues = append(issues, QualityIssue{
			Rule:     r.Name(),
			Field:    f.name,
			Severity: "medium",
			Message:  fmt.Sprintf("%d outside [%d, %d], using %d", *v, f.bounds.Min, f.bounds.Max, clamped),
		})
		*v = clamped
	}
	return issues
}

// WhitespaceRule 去除类别字段首尾空白
type WhitespaceRule struct{}

func NewWhitespaceRule() *WhitespaceRule {
	return &WhitespaceRule{}
}

func (r *WhitespaceRule) Name() string {
	return "whitespace"
}

func (r *WhitespaceRule) Apply(profile *ml.Profile) []QualityIssue {
	var issues []QualityIssue
	trim := func(field string, v *string) {
		trimmed := strings.TrimSpace(*v)
		if trimmed == *v {
			return
		}
		issues = append(issues, QualityIssue{
			Rule:     r.Name(),
			Field:    field,
			Severity: "low",
			Message:  "trimmed surrounding whitespace",
		})
		*v = trimmed
	}
	trim(ml.FeatureSex, &profile.Sex)
	trim(ml.FeatureEducation, &profile.Education)
	trim(ml.FeatureMaritalStatus, &profile.MaritalStatus)
	trim(ml.FeatureOccupation, &profile.Occupation)
	return issues
}
