package http

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"incomeinsight/ml"
)

// FieldError 表单字段无法解析
type FieldError struct {
	Field string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v is not a whole number", e.Field, e.Value)
}

// valueSource 按字段名取提交值，表单和 JSON 共用
type valueSource func(field string) (any, bool)

// parseProfile 从提交值组装 Profile，缺省的数值字段取表单默认值
func parseProfile(get valueSource) (ml.Profile, error) {
	var p ml.Profile
	var err error
	if p.Age, err = intField(get, ml.FeatureAge, ml.AgeRange.Default); err != nil {
		return p, err
	}
	if p.HoursPerWeek, err = intField(get, ml.FeatureHoursPerWeek, ml.HoursPerWeekRange.Default); err != nil {
		return p, err
	}
	if p.CapitalGain, err = intField(get, ml.FeatureCapitalGain, ml.CapitalRange.Default); err != nil {
		return p, err
	}
	if p.CapitalLoss, err = intField(get, ml.FeatureCapitalLoss, ml.CapitalRange.Default); err != nil {
		return p, err
	}
	p.Sex = stringField(get, ml.FeatureSex)
	p.Education = stringField(get, ml.FeatureEducation)
	p.MaritalStatus = stringField(get, ml.FeatureMaritalStatus)
	p.Occupation = stringField(get, ml.FeatureOccupation)
	return p, nil
}

func intField(get valueSource, field string, fallback int) (int, error) {
	raw, ok := get(field)
	if !ok || raw == nil {
		return fallback, nil
	}
	if s, isString := raw.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" {
			return fallback, nil
		}
		// 表单输入按十进制解析，045 是 45 而不是八进制
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, &FieldError{Field: field, Value: s}
		}
		return v, nil
	}
	if _, isBool := raw.(bool); isBool {
		return 0, &FieldError{Field: field, Value: raw}
	}
	if f, isFloat := raw.(float64); isFloat && f != math.Trunc(f) {
		return 0, &FieldError{Field: field, Value: raw}
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, &FieldError{Field: field, Value: raw}
	}
	return v, nil
}

func stringField(get valueSource, field string) string {
	raw, ok := get(field)
	if !ok || raw == nil {
		return ""
	}
	return cast.ToString(raw)
}

func formValues(values map[string][]string) valueSource {
	return func(field string) (any, bool) {
		v, ok := values[field]
		if !ok || len(v) == 0 {
			return nil, false
		}
		return v[0], true
	}
}

func jsonValues(values map[string]any) valueSource {
	return func(field string) (any, bool) {
		v, ok := values[field]
		return v, ok
	}
}
