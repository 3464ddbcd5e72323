package predictor

import (
	"context"
	"fmt"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

// stubCompletionClient returns a canned response or error
type stubCompletionClient struct {
	response string
	err      error
	calls    int
}

func (s *stubCompletionClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestRuleBasedPredict_ElderlySevereHernia(t *testing.T) {
	features := FeatureVector{
		PatientID: "p1",
		Age:       70,
		Severity:  8,
		Pathology: "hérnia lombar",
	}

	prediction := RuleBasedPredict(features)

	// 21 base + 14 age + 21 severity + 28 hérnia
	assert.GreaterOrEqual(t, prediction.EstimatedTreatmentDays, 56)
	assert.Equal(t, model.RiskHigh, prediction.AbandonmentRisk)
	assert.True(t, prediction.ReassessmentNeeded)
	assert.Equal(t, 0.7, prediction.Confidence)
	assert.InDelta(t, 0.7, prediction.SuccessProbability, 0.30)
	assert.NotEmpty(t, prediction.Factors)
}

func TestRuleBasedPredict_YoungMildCase(t *testing.T) {
	features := FeatureVector{
		PatientID: "p2",
		Age:       25,
		Severity:  3,
		Pathology: "tendinite",
	}

	prediction := RuleBasedPredict(features)

	// 21 - 7 age - 7 severity
	assert.Equal(t, 7, prediction.EstimatedTreatmentDays)
	assert.Equal(t, model.RiskLow, prediction.AbandonmentRisk)
	assert.False(t, prediction.ReassessmentNeeded)
	assert.InDelta(t, 0.9, prediction.SuccessProbability, 1e-9)
}

func TestRuleBasedPredict_DaysNeverBelowMinimum(t *testing.T) {
	prediction := RuleBasedPredict(FeatureVector{Age: 25, Severity: 1})

	assert.GreaterOrEqual(t, prediction.EstimatedTreatmentDays, 7)
}

func TestRuleBasedPredict_SurgeryHistoryExtendsTreatment(t *testing.T) {
	withSurgery := RuleBasedPredict(FeatureVector{
		Age:        40,
		Severity:   5,
		Pathology:  DefaultPathology,
		RawHistory: "passou por cirurgia no joelho em 2024",
	})
	without := RuleBasedPredict(FeatureVector{
		Age:       40,
		Severity:  5,
		Pathology: DefaultPathology,
	})

	assert.Equal(t, without.EstimatedTreatmentDays+28, withSurgery.EstimatedTreatmentDays)
}

func TestRuleBasedPredict_ComplicationRiskClamped(t *testing.T) {
	high := RuleBasedPredict(FeatureVector{Age: 95, Severity: 10})
	low := RuleBasedPredict(FeatureVector{Age: 0, Severity: 0})

	assert.InDelta(t, 0.8, high.ComplicationRisk, 1e-9)
	assert.InDelta(t, 0.05, low.ComplicationRisk, 1e-9)
}

func TestPredict_UsesAIResponseWhenValid(t *testing.T) {
	stub := &stubCompletionClient{
		response: "```json\n" + `{
			"estimated_treatment_days": 42,
			"success_probability": 0.62,
			"abandonment_risk": "high",
			"complication_risk": 0.5,
			"confidence": 0.9,
			"factors": [{"name": "adesão", "impact": -2.0, "description": "faltas frequentes"}]
		}` + "\n```",
	}
	predictor := NewOutcomePredictor(stub, zap.NewNop())

	prediction := predictor.Predict(context.Background(), FeatureVector{PatientID: "p1", Age: 50, Severity: 5})

	assert.Equal(t, 42, prediction.EstimatedTreatmentDays)
	assert.InDelta(t, 0.62, prediction.SuccessProbability, 1e-9)
	assert.Equal(t, model.RiskHigh, prediction.AbandonmentRisk)
	assert.InDelta(t, 0.9, prediction.Confidence, 1e-9)
	// Out-of-range factor impacts are clamped, not rejected
	require.Len(t, prediction.Factors, 1)
	assert.Equal(t, -1.0, prediction.Factors[0].Impact)
}

func TestPredict_FallsBackOnGarbageResponse(t *testing.T) {
	stub := &stubCompletionClient{response: "desculpe, não consegui gerar o JSON"}
	predictor := NewOutcomePredictor(stub, zap.NewNop())

	prediction := predictor.Predict(context.Background(), FeatureVector{PatientID: "p1", Age: 50, Severity: 5})

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, baseTreatmentDays, prediction.EstimatedTreatmentDays)
	assert.Equal(t, 0.7, prediction.Confidence)
}

func TestPredict_FallsBackOnInvalidRiskEnum(t *testing.T) {
	stub := &stubCompletionClient{
		response: `{"estimated_treatment_days": 30, "success_probability": 0.5, "abandonment_risk": "MAYBE"}`,
	}
	predictor := NewOutcomePredictor(stub, zap.NewNop())

	prediction := predictor.Predict(context.Background(), FeatureVector{PatientID: "p1", Severity: 5})

	assert.Equal(t, 0.7, prediction.Confidence)
	assert.Equal(t, baseTreatmentDays, prediction.EstimatedTreatmentDays)
}

func TestPredict_FallsBackOnClientError(t *testing.T) {
	stub := &stubCompletionClient{err: fmt.Errorf("upstream timeout")}
	predictor := NewOutcomePredictor(stub, zap.NewNop())

	prediction := predictor.Predict(context.Background(), FeatureVector{PatientID: "p1", Age: 70, Severity: 8, Pathology: "hérnia"})

	assert.GreaterOrEqual(t, prediction.EstimatedTreatmentDays, 56)
	assert.Equal(t, model.RiskHigh, prediction.AbandonmentRisk)
}

func TestPredict_NilClientUsesRules(t *testing.T) {
	predictor := NewOutcomePredictor(nil, zap.NewNop())

	prediction := predictor.Predict(context.Background(), FeatureVector{PatientID: "p1", Severity: 5})

	assert.Equal(t, baseTreatmentDays, prediction.EstimatedTreatmentDays)
}

func TestBatchPredict_FailureDoesNotAbortBatch(t *testing.T) {
	predictor := NewOutcomePredictor(nil, zap.NewNop())

	lookup := func(patientID string) (FeatureVector, error) {
		if patientID == "broken" {
			return FeatureVector{}, fmt.Errorf("records unavailable")
		}
		return FeatureVector{PatientID: patientID, Age: 40, Severity: 5}, nil
	}

	predictions := predictor.BatchPredict(context.Background(), []string{"p1", "broken", "p2"}, lookup)

	require.Len(t, predictions, 3)
	assert.Equal(t, baseTreatmentDays, predictions["p1"].EstimatedTreatmentDays)
	assert.Equal(t, baseTreatmentDays, predictions["p2"].EstimatedTreatmentDays)
	// The broken patient gets the conservative safe default
	assert.Equal(t, safeTreatmentDays, predictions["broken"].EstimatedTreatmentDays)
	assert.Equal(t, safeConfidence, predictions["broken"].Confidence)
}

func TestSafeDefaultPrediction(t *testing.T) {
	prediction := SafeDefaultPrediction("p9")

	assert.Equal(t, "p9", prediction.PatientID)
	assert.Equal(t, 30, prediction.EstimatedTreatmentDays)
	assert.InDelta(t, 0.7, prediction.SuccessProbability, 1e-9)
	assert.Equal(t, model.RiskMedium, prediction.AbandonmentRisk)
	assert.InDelta(t, 0.6, prediction.Confidence, 1e-9)
}
