package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"incomeinsight/llm"
	"incomeinsight/ml"
	"incomeinsight/pipeline"
)

// ModelInfo 页面侧边栏展示的模型信息
type ModelInfo struct {
	Name     string
	Accuracy float64
}

// Handler 表单页面和 JSON 接口共用的处理器
type Handler struct {
	service *pipeline.Service
	info    ModelInfo
	logger  *zap.Logger
}

func NewHandler(service *pipeline.Service, info ModelInfo, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, info: info, logger: logger}
}

// RegisterAPIHandlers 注册 JSON 接口
func (h *Handler) RegisterAPIHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.service.Artifacts() == nil {
		status = "no artifacts"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

type modelResponse struct {
	Name          string              `json:"name"`
	ModelType     string              `json:"model_type"`
	Accuracy      float64             `json:"accuracy"`
	FeatureOrder  []string            `json:"feature_order"`
	ImplicitOrder bool                `json:"implicit_order"`
	Classes       []string            `json:"classes"`
	Vocabularies  map[string][]string `json:"vocabularies"`
	Ranges        map[string]ml.Range `json:"ranges"`
	LoadedAt      string              `json:"loaded_at"`
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	artifacts := h.service.Artifacts()
	if artifacts == nil {
		writeError(w, http.StatusServiceUnavailable, pipeline.ErrNoArtifacts.Error())
		return
	}
	vocabularies := artifacts.Encoders.Vocabularies()
	classes := vocabularies[ml.IncomeField]
	delete(vocabularies, ml.IncomeField)

	writeJSON(w, http.StatusOK, modelResponse{
		Name:          h.info.Name,
		ModelType:     artifacts.ModelType,
		Accuracy:      h.info.Accuracy,
		FeatureOrder:  artifacts.Preparer.Order(),
		ImplicitOrder: artifacts.ImplicitOrder,
		Classes:       classes,
		Vocabularies:  vocabularies,
		Ranges: map[string]ml.Range{
			ml.FeatureAge:          ml.AgeRange,
			ml.FeatureHoursPerWeek: ml.HoursPerWeekRange,
			ml.FeatureCapitalGain:  ml.CapitalRange,
			ml.FeatureCapitalLoss:  ml.CapitalRange,
		},
		LoadedAt: artifacts.LoadedAt.UTC().Format(time.RFC3339),
	})
}

type explanationErrorResponse struct {
	Kind       string `json:"kind"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Raw        string `json:"raw,omitempty"`
}

type predictResponse struct {
	RequestID        string                    `json:"request_id"`
	Prediction       ml.Prediction             `json:"prediction"`
	Submitted        ml.Profile                `json:"submitted"`
	Features         ml.PreparedFeatures       `json:"features"`
	Issues           []pipeline.QualityIssue   `json:"issues,omitempty"`
	Explanation      string                    `json:"explanation,omitempty"`
	ExplanationError *explanationErrorResponse `json:"explanation_error,omitempty"`
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	profile, err := parseProfile(jsonValues(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := pipeline.SubmitOptions{Explain: true}
	if raw, ok := body["explain"]; ok {
		explain, isBool := raw.(bool)
		if !isBool {
			writeError(w, http.StatusBadRequest, "explain must be a boolean")
			return
		}
		opts.Explain = explain
	}

	result, err := h.service.Submit(r.Context(), profile, opts)
	if err != nil {
		h.logger.Error("prediction request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		code := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrNoArtifacts) {
			code = http.StatusServiceUnavailable
		}
		writeError(w, code, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		RequestID:        GetRequestID(r.Context()),
		Prediction:       result.Prediction,
		Submitted:        result.Submitted,
		Features:         result.Features,
		Issues:           result.Issues,
		Explanation:      result.Explanation,
		ExplanationError: explanationErrorBody(result.ExplanationErr),
	})
}

func explanationErrorBody(err error) *explanationErrorResponse {
	if err == nil {
		return nil
	}
	var explErr *llm.ExplanationError
	if errors.As(err, &explErr) {
		return &explanationErrorResponse{
			Kind:       string(explErr.Kind),
			StatusCode: explErr.StatusCode,
			Message:    explErr.Error(),
			Raw:        explErr.Raw,
		}
	}
	if errors.Is(err, pipeline.ErrExplainerUnavailable) {
		return &explanationErrorResponse{Kind: "unavailable", Message: err.Error()}
	}
	return &explanationErrorResponse{Kind: string(llm.TransportFailure), Message: err.Error()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
