// Package monitoring 提供Prometheus指标
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "income_insight"

// 解释结果
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
)

// Metrics 指标收集器
// 所有方法对nil接收者安全，测试中可以直接传nil
type Metrics struct {
	predictions        *prometheus.CounterVec
	predictionErrors   prometheus.Counter
	explanations       *prometheus.CounterVec
	explanationLatency prometheus.Histogram
	unseenCategories   *prometheus.CounterVec
	corrections        *prometheus.CounterVec
	artifactReloads    *prometheus.CounterVec
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by income label.",
		}, []string{"label"}),
		predictionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Submissions that failed during inference.",
		}),
		explanations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanations_total",
			Help:      "Explanation requests, by outcome.",
		}, []string{"outcome"}),
		explanationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "explanation_duration_seconds",
			Help:      "Latency of the explanation request.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		unseenCategories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unseen_category_total",
			Help:      "Categorical inputs replaced by the first vocabulary entry, by field.",
		}, []string{"field"}),
		corrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_corrections_total",
			Help:      "Profile fields corrected before preparation, by field.",
		}, []string{"field"}),
		artifactReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_reloads_total",
			Help:      "Artifact reload attempts, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.predictions,
			m.predictionErrors,
			m.explanations,
			m.explanationLatency,
			m.unseenCategories,
			m.corrections,
			m.artifactReloads,
		)
	}
	return m
}

// RecordPrediction 记录一次成功预测
func (m *Metrics) RecordPrediction(label string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(label).Inc()
}

// RecordPredictionError 记录一次推理失败
func (m *Metrics) RecordPredictionError() {
	if m == nil {
		return
	}
	m.predictionErrors.Inc()
}

// RecordExplanation 记录解释请求结果和耗时
func (m *Metrics) RecordExplanation(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.explanations.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.explanationLatency.Observe(d.Seconds())
	}
}

// RecordUnseenCategory 记录未知类别回退
func (m *Metrics) RecordUnseenCategory(field string) {
	if m == nil {
		return
	}
	m.unseenCategories.WithLabelValues(field).Inc()
}

// RecordCorrection 记录输入修正
func (m *Metrics) RecordCorrection(field string) {
	if m == nil {
		return
	}
	m.corrections.WithLabelValues(field).Inc()
}

// RecordReload 记录模型文件重载
func (m *Metrics) RecordReload(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.artifactReloads.WithLabelValues(result).Inc()
}
