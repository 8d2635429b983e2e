package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"incomeinsight/llm"
	"incomeinsight/ml"
	"incomeinsight/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"money":   formatMoney,
	"percent": formatPercent,
}).ParseFS(templateFS, "templates/*.html"))

// formView 表单页面数据
type formView struct {
	Info          ModelInfo
	Classes       []string
	Sexes         []string
	Educations    []string
	MaritalStatus []string
	Occupations   []string
	Profile       ml.Profile
	AgeRange      ml.Range
	HoursRange    ml.Range
	CapitalRange  ml.Range
	Result        *resultView
	Error         string
}

// resultView 预测结果
type resultView struct {
	Label       string
	High        bool
	Confidence  float64
	Profile     ml.Profile
	Issues      []pipeline.QualityIssue
	Substituted []string
	Explanation string
	// 解释失败时的提示和原始返回
	ExplanationError string
	ExplanationRaw   string
}

// RegisterFormHandlers 注册表单页面
func (h *Handler) RegisterFormHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handleFormPredict)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, ok := h.newFormView()
	if !ok {
		h.renderUnavailable(w)
		return
	}
	h.render(w, http.StatusOK, view)
}

func (h *Handler) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	view, ok := h.newFormView()
	if !ok {
		h.renderUnavailable(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		view.Error = "The form could not be read."
		h.render(w, http.StatusBadRequest, view)
		return
	}
	profile, err := parseProfile(formValues(r.PostForm))
	if err != nil {
		view.Error = err.Error()
		h.render(w, http.StatusBadRequest, view)
		return
	}
	view.Profile = profile

	result, err := h.service.Submit(r.Context(), profile, pipeline.SubmitOptions{Explain: true})
	if err != nil {
		h.logger.Error("prediction request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		view.Error = "An error occurred during prediction."
		h.render(w, http.StatusInternalServerError, view)
		return
	}

	view.Result = newResultView(result)
	h.render(w, http.StatusOK, view)
}

func newResultView(result *pipeline.Result) *resultView {
	rv := &resultView{
		Label:       result.Prediction.Label,
		High:        result.Prediction.Label == ml.HighIncomeLabel,
		Confidence:  result.Prediction.Confidence,
		Profile:     result.Submitted,
		Issues:      result.Issues,
		Substituted: result.Features.Substituted,
		Explanation: result.Explanation,
	}
	if result.ExplanationErr == nil {
		if strings.TrimSpace(rv.Explanation) == "" {
			rv.Explanation = ""
			rv.ExplanationError = "The explanation service returned an empty response."
		}
		return rv
	}
	var explErr *llm.ExplanationError
	switch {
	case errors.As(result.ExplanationErr, &explErr) && explErr.Kind == llm.RequestFailure:
		rv.ExplanationError = "Failed to get a response from the explanation service."
		rv.ExplanationRaw = explErr.Raw
	case errors.As(result.ExplanationErr, &explErr) && explErr.Kind == llm.ParseFailure:
		rv.ExplanationError = "Couldn't parse the explanation response. Here's the raw output:"
		rv.ExplanationRaw = explErr.Raw
	case errors.Is(result.ExplanationErr, pipeline.ErrExplainerUnavailable):
		rv.ExplanationError = "Personalized recommendations are not configured."
	default:
		rv.ExplanationError = "The explanation service could not be reached."
	}
	return rv
}

// newFormView 表单选项来自当前编码器词表
func (h *Handler) newFormView() (*formView, bool) {
	artifacts := h.service.Artifacts()
	if artifacts == nil {
		return nil, false
	}
	vocab := artifacts.Encoders.Vocabularies()
	return &formView{
		Info:          h.info,
		Classes:       vocab[ml.IncomeField],
		Sexes:         vocab[ml.FeatureSex],
		Educations:    vocab[ml.FeatureEducation],
		MaritalStatus: vocab[ml.FeatureMaritalStatus],
		Occupations:   vocab[ml.FeatureOccupation],
		Profile: ml.Profile{
			Age:          ml.AgeRange.Default,
			HoursPerWeek: ml.HoursPerWeekRange.Default,
			CapitalGain:  ml.CapitalRange.Default,
			CapitalLoss:  ml.CapitalRange.Default,
		},
		AgeRange:     ml.AgeRange,
		HoursRange:   ml.HoursPerWeekRange,
		CapitalRange: ml.CapitalRange,
	}, true
}

func (h *Handler) render(w http.ResponseWriter, code int, view *formView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func (h *Handler) renderUnavailable(w http.ResponseWriter) {
	http.Error(w, "model artifacts are not loaded", http.StatusServiceUnavailable)
}
