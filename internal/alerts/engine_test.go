package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

type stubCompletionClient struct {
	response string
	err      error
}

func (s *stubCompletionClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestEngine(aiClient CompletionClient) *Engine {
	logger := zap.NewNop()
	return NewEngine(NewRuleSet(aiClient, 0, logger), NewStore(logger), logger)
}

func highRiskPrediction(patientID string) model.Prediction {
	return model.Prediction{
		PatientID:       patientID,
		AbandonmentRisk: model.RiskHigh,
	}
}

func TestEngine_IdenticalTriggersYieldOneAlert(t *testing.T) {
	engine := newTestEngine(nil)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	in := EvaluationInput{
		Now:         now,
		Patients:    []model.Patient{{ID: "p1", Name: "Ana", CreatedAt: now.AddDate(0, -3, 0)}},
		Predictions: map[string]model.Prediction{"p1": highRiskPrediction("p1")},
	}

	first := engine.Evaluate(context.Background(), in)
	second := engine.Evaluate(context.Background(), in)

	count := 0
	for _, alert := range first {
		if alert.Type == model.AlertAbandonmentRisk {
			count++
		}
	}
	require.Equal(t, 1, count)
	for _, alert := range second {
		assert.NotEqual(t, model.AlertAbandonmentRisk, alert.Type)
	}
}

func TestEngine_AbandonmentRiskUsesFallbackActions(t *testing.T) {
	engine := newTestEngine(nil)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	created := engine.Evaluate(context.Background(), EvaluationInput{
		Now:         now,
		Patients:    []model.Patient{{ID: "p1", Name: "Ana", CreatedAt: now.AddDate(0, -3, 0)}},
		Predictions: map[string]model.Prediction{"p1": highRiskPrediction("p1")},
	})

	var found *model.Alert
	for i := range created {
		if created[i].Type == model.AlertAbandonmentRisk {
			found = &created[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, model.SeverityHigh, found.Severity)
	assert.Equal(t, []string{"p1"}, found.AffectedEntities)
	assert.Equal(t, fallbackActions, found.SuggestedActions)
}

func TestEngine_AbandonmentRiskUsesAISuggestions(t *testing.T) {
	stub := &stubCompletionClient{response: "```json\n[\"Ligar hoje\", \"Oferecer horário alternativo\"]\n```"}
	engine := newTestEngine(stub)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	created := engine.Evaluate(context.Background(), EvaluationInput{
		Now:         now,
		Patients:    []model.Patient{{ID: "p1", Name: "Ana", CreatedAt: now.AddDate(0, -3, 0)}},
		Predictions: map[string]model.Prediction{"p1": highRiskPrediction("p1")},
	})

	var found *model.Alert
	for i := range created {
		if created[i].Type == model.AlertAbandonmentRisk {
			found = &created[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, []string{"Ligar hoje", "Oferecer horário alternativo"}, found.SuggestedActions)
}

func TestEngine_AISuggestionFailureFallsBack(t *testing.T) {
	stub := &stubCompletionClient{err: fmt.Errorf("upstream down")}
	rules := NewRuleSet(stub, 0, zap.NewNop())

	actions := rules.suggestActions(context.Background(), "Ana")

	assert.Equal(t, fallbackActions, actions)
}

func TestRules_SpecialAttentionComplicationRisk(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	alerts := rules.EvaluateSpecialAttention(EvaluationInput{
		Now: now,
		Patients: []model.Patient{
			{ID: "p1", Name: "Ana"},
		},
		Appointments: []model.Appointment{
			{PatientID: "p1", Status: model.AppointmentCompleted, ScheduledAt: now.AddDate(0, 0, -2)},
		},
		Predictions: map[string]model.Prediction{
			"p1": {PatientID: "p1", ComplicationRisk: 0.75},
		},
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertSpecialAttention, alerts[0].Type)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
}

func TestRules_InactivePatientsCapped(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	var patients []model.Patient
	for i := 0; i < 8; i++ {
		patients = append(patients, model.Patient{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Paciente %d", i)})
	}

	countInactive := func(alerts []model.Alert) int {
		inactive := 0
		for _, alert := range alerts {
			if alert.Type == model.AlertInactivePatient {
				inactive++
			}
		}
		return inactive
	}

	t.Run("default cap", func(t *testing.T) {
		rules := NewRuleSet(nil, 0, zap.NewNop())
		alerts := rules.EvaluateSpecialAttention(EvaluationInput{Now: now, Patients: patients})
		assert.Equal(t, defaultMaxInactiveAlerts, countInactive(alerts))
	})

	t.Run("configured cap", func(t *testing.T) {
		rules := NewRuleSet(nil, 3, zap.NewNop())
		alerts := rules.EvaluateSpecialAttention(EvaluationInput{Now: now, Patients: patients})
		assert.Equal(t, 3, countInactive(alerts))
	})
}

func TestRules_TreatmentImprovementNeedsNegativeFactor(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	in := EvaluationInput{
		Now: now,
		Predictions: map[string]model.Prediction{
			"p1": {
				PatientID:          "p1",
				SuccessProbability: 0.45,
				Factors:            []model.PredictionFactor{{Name: "baixa adesão", Impact: -0.3}},
			},
			"p2": {
				PatientID:          "p2",
				SuccessProbability: 0.45,
				Factors:            []model.PredictionFactor{{Name: "idade jovem", Impact: 0.3}},
			},
			"p3": {PatientID: "p3", SuccessProbability: 0.9},
		},
	}

	alerts := rules.EvaluateTreatmentImprovement(in)

	require.Len(t, alerts, 1)
	assert.Equal(t, []string{"p1"}, alerts[0].AffectedEntities)
	assert.Contains(t, alerts[0].Message, "baixa adesão")
}

func TestRules_HighCancellationRate(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	var appointments []model.Appointment
	for i := 0; i < 6; i++ {
		appointments = append(appointments, model.Appointment{
			Status:      model.AppointmentCompleted,
			ScheduledAt: now.AddDate(0, 0, -i-1),
		})
	}
	for i := 0; i < 4; i++ {
		appointments = append(appointments, model.Appointment{
			Status:      model.AppointmentCancelled,
			ScheduledAt: now.AddDate(0, 0, -i-1),
		})
	}

	alerts := rules.EvaluateConcerningTrends(EvaluationInput{Now: now, Appointments: appointments})

	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertHighCancellation, alerts[0].Type)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
}

func TestRules_CancellationRateBelowThresholdIsQuiet(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	appointments := []model.Appointment{
		{Status: model.AppointmentCompleted, ScheduledAt: now.AddDate(0, 0, -1)},
		{Status: model.AppointmentCompleted, ScheduledAt: now.AddDate(0, 0, -2)},
		{Status: model.AppointmentCompleted, ScheduledAt: now.AddDate(0, 0, -3)},
		{Status: model.AppointmentCancelled, ScheduledAt: now.AddDate(0, 0, -4)},
	}

	alerts := rules.EvaluateConcerningTrends(EvaluationInput{Now: now, Appointments: appointments})

	assert.Empty(t, alerts)
}

func TestRules_NewPatientDrop(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)

	var patients []model.Patient
	for i := 0; i < 10; i++ {
		patients = append(patients, model.Patient{
			ID:        fmt.Sprintf("old%d", i),
			CreatedAt: time.Date(2026, 1, 5+i, 0, 0, 0, 0, time.UTC),
		})
	}
	patients = append(patients, model.Patient{
		ID:        "new1",
		CreatedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
	})

	alerts := rules.EvaluateConcerningTrends(EvaluationInput{Now: now, Patients: patients})

	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertNewPatientDrop, alerts[0].Type)
	assert.Equal(t, model.SeverityMedium, alerts[0].Severity)
}

func TestRules_WorkloadImbalance(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	var appointments []model.Appointment
	for i := 0; i < 10; i++ {
		appointments = append(appointments, model.Appointment{
			TherapistID: "t1",
			ScheduledAt: now.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
	for i := 0; i < 3; i++ {
		appointments = append(appointments, model.Appointment{
			TherapistID: "t2",
			ScheduledAt: now.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}

	alerts := rules.EvaluateOperational(EvaluationInput{Now: now, Appointments: appointments})

	var imbalance *model.Alert
	for i := range alerts {
		if alerts[i].Type == model.AlertWorkloadImbalance {
			imbalance = &alerts[i]
		}
	}
	require.NotNil(t, imbalance)
	assert.ElementsMatch(t, []string{"t1", "t2"}, imbalance.AffectedEntities)
}

func TestRules_LowDemandHours(t *testing.T) {
	rules := NewRuleSet(nil, 0, zap.NewNop())
	now := time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC)

	var appointments []model.Appointment
	// Hours 8 and 9 are busy, hours 14 through 17 see one appointment each
	for i := 0; i < 5; i++ {
		appointments = append(appointments,
			model.Appointment{ScheduledAt: time.Date(2026, 2, 3+i, 8, 0, 0, 0, time.UTC)},
			model.Appointment{ScheduledAt: time.Date(2026, 2, 3+i, 9, 0, 0, 0, time.UTC)},
		)
	}
	for hour := 14; hour <= 17; hour++ {
		appointments = append(appointments, model.Appointment{ScheduledAt: time.Date(2026, 2, 5, hour, 0, 0, 0, time.UTC)})
	}

	alerts := rules.EvaluateOperational(EvaluationInput{Now: now, Appointments: appointments})

	var lowDemand *model.Alert
	for i := range alerts {
		if alerts[i].Type == model.AlertLowDemandHours {
			lowDemand = &alerts[i]
		}
	}
	require.NotNil(t, lowDemand)
	assert.Equal(t, model.SeverityLow, lowDemand.Severity)
	assert.Contains(t, lowDemand.Message, "14h")
}

func TestEngine_ActiveIsRanked(t *testing.T) {
	engine := newTestEngine(nil)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	engine.Evaluate(context.Background(), EvaluationInput{
		Now: now,
		Patients: []model.Patient{
			{ID: "p1", Name: "Ana", CreatedAt: now.AddDate(0, -3, 0)},
		},
		Predictions: map[string]model.Prediction{"p1": highRiskPrediction("p1")},
	})

	active := engine.Active()
	require.NotEmpty(t, active)
	for i := 1; i < len(active); i++ {
		assert.GreaterOrEqual(t, active[i-1].Severity.Rank(), active[i].Severity.Rank())
	}
}
