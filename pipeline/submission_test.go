package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"incomeinsight/llm"
	"incomeinsight/ml"
	"incomeinsight/monitoring"
)

type fakeExplainer struct {
	text    string
	err     error
	profile ml.Profile
	label   string
}

func (f *fakeExplainer) Explain(ctx context.Context, profile ml.Profile, label string) (string, error) {
	f.profile = profile
	f.label = label
	return f.text, f.err
}

type failingModel struct{}

func (failingModel) Predict([]float64) (int, float64, error) { return 0, 0, errors.New("shape mismatch") }
func (failingModel) FeatureNames() []string                  { return nil }

func testStore(t *testing.T) *ml.ArtifactStore {
	t.Helper()
	store, err := ml.NewArtifactStore(ml.ArtifactPaths{
		Dir:                 "../ml/testdata",
		ModelType:           ml.ModelTypeRandomForest,
		ModelFile:           "model.json",
		ScalerFile:          "scaler.json",
		EncodersFile:        "encoders.json",
		RequireFeatureOrder: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store
}

func scenarioProfile() ml.Profile {
	return ml.Profile{
		Age:           45,
		Education:     "Bachelors",
		MaritalStatus: "Married-civ-spouse",
		Occupation:    "Exec-managerial",
		Sex:           "Male",
		HoursPerWeek:  50,
		CapitalGain:   5000,
		CapitalLoss:   0,
	}
}

func TestSubmitScenario(t *testing.T) {
	explainer := &fakeExplainer{text: "Keep it up."}
	svc := NewService(testStore(t), explainer, monitoring.NewMetrics(prometheus.NewRegistry()), zaptest.NewLogger(t))

	result, err := svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{Explain: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Features.MaritalStatusBinary)
	assert.Len(t, result.Features.Scaled, 9)
	assert.Contains(t, []string{">50K", "<=50K"}, result.Prediction.Label)
	assert.Equal(t, "Keep it up.", result.Explanation)
	assert.NoError(t, result.ExplanationErr)
	assert.Equal(t, result.Prediction.Label, explainer.label)
	assert.Equal(t, scenarioProfile(), explainer.profile)
}

func TestSubmitExplainsWithResolvedValues(t *testing.T) {
	explainer := &fakeExplainer{text: "ok"}
	svc := NewService(testStore(t), explainer, nil, zaptest.NewLogger(t))
	profile := scenarioProfile()
	profile.Occupation = "Unknown-Job"
	profile.Age = 150

	result, err := svc.Submit(context.Background(), profile, SubmitOptions{Explain: true})
	require.NoError(t, err)

	assert.Equal(t, "Adm-clerical", explainer.profile.Occupation)
	assert.Equal(t, 90, explainer.profile.Age)
	assert.Equal(t, []string{ml.FeatureOccupation}, result.Features.Substituted)
	assert.Len(t, result.Issues, 1)
	assert.Equal(t, "Unknown-Job", result.Submitted.Occupation)
}

func TestSubmitKeepsPredictionWhenExplanationRequestFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal"}`))
	}))
	defer server.Close()

	config := llm.DefaultGeminiConfig("test-key")
	config.BaseURL = server.URL
	explainer, err := llm.NewGeminiExplainer(config)
	require.NoError(t, err)
	svc := NewService(testStore(t), explainer, monitoring.NewMetrics(prometheus.NewRegistry()), zaptest.NewLogger(t))

	result, err := svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{Explain: true})
	require.NoError(t, err)
	assert.Equal(t, ">50K", result.Prediction.Label)
	assert.Empty(t, result.Explanation)

	var explErr *llm.ExplanationError
	require.ErrorAs(t, result.ExplanationErr, &explErr)
	assert.Equal(t, llm.RequestFailure, explErr.Kind)
	assert.Equal(t, `{"error":"internal"}`, explErr.Raw)
}

func TestSubmitKeepsPredictionWhenExplanationParseFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"usageMetadata":{}}`))
	}))
	defer server.Close()

	config := llm.DefaultGeminiConfig("test-key")
	config.BaseURL = server.URL
	explainer, err := llm.NewGeminiExplainer(config)
	require.NoError(t, err)
	svc := NewService(testStore(t), explainer, nil, zaptest.NewLogger(t))

	result, err := svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{Explain: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Prediction.Label)

	var explErr *llm.ExplanationError
	require.ErrorAs(t, result.ExplanationErr, &explErr)
	assert.Equal(t, llm.ParseFailure, explErr.Kind)
	assert.Equal(t, `{"usageMetadata":{}}`, explErr.Raw)
}

func TestSubmitWithoutExplainer(t *testing.T) {
	svc := NewService(testStore(t), nil, nil, zaptest.NewLogger(t))

	result, err := svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{Explain: true})
	require.NoError(t, err)
	assert.ErrorIs(t, result.ExplanationErr, ErrExplainerUnavailable)

	result, err = svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{})
	require.NoError(t, err)
	assert.NoError(t, result.ExplanationErr)
	assert.Empty(t, result.Explanation)
}

func TestSubmitInferenceFailure(t *testing.T) {
	bundle := testStore(t).Current()
	labels, _ := bundle.Encoders.Get(ml.IncomeField)
	predictor, err := ml.NewPredictor(failingModel{}, labels)
	require.NoError(t, err)
	broken := *bundle
	broken.Predictor = predictor

	explainer := &fakeExplainer{text: "never"}
	svc := NewService(ml.NewStaticStore(&broken), explainer, nil, zaptest.NewLogger(t))

	_, err = svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{Explain: true})
	assert.ErrorContains(t, err, "prediction failed")
	assert.Empty(t, explainer.label, "explainer must not run after a failed prediction")
}

func TestSubmitWithoutArtifacts(t *testing.T) {
	svc := NewService(ml.NewStaticStore(nil), nil, nil, nil)
	_, err := svc.Submit(context.Background(), scenarioProfile(), SubmitOptions{})
	assert.ErrorIs(t, err, ErrNoArtifacts)
}
