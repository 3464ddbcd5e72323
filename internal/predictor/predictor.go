package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/fisiocore/backend/internal/ai"
	"github.com/fisiocore/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	baseTreatmentDays = 21
	baseSuccessProb   = 0.7
	ruleConfidence    = 0.7
	aiConfidence      = 0.85
	minTreatmentDays  = 7
	minSuccessProb    = 0.1
	maxSuccessProb    = 0.95
	safeTreatmentDays = 30
	safeConfidence    = 0.6
)

// CompletionClient is the generative-text collaborator. Its output is
// untrusted; every call site parses defensively and falls back to the
// deterministic rule set.
type CompletionClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// OutcomePredictor estimates treatment outcomes from feature vectors
type OutcomePredictor struct {
	aiClient CompletionClient
	logger   *zap.Logger
}

// NewOutcomePredictor creates a new OutcomePredictor. aiClient may be nil;
// prediction then always uses the deterministic rule set.
func NewOutcomePredictor(aiClient CompletionClient, logger *zap.Logger) *OutcomePredictor {
	return &OutcomePredictor{
		aiClient: aiClient,
		logger:   logger,
	}
}

// aiPrediction is the JSON schema expected from the collaborator
type aiPrediction struct {
	EstimatedTreatmentDays int                      `json:"estimated_treatment_days"`
	SuccessProbability     float64                  `json:"success_probability"`
	AbandonmentRisk        string                   `json:"abandonment_risk"`
	ComplicationRisk       float64                  `json:"complication_risk"`
	Confidence             float64                  `json:"confidence"`
	Factors                []model.PredictionFactor `json:"factors"`
}

// Predict estimates the treatment outcome for one feature vector. It
// attempts the generative collaborator first and falls back to the
// deterministic rules on any error or unparseable response; it never fails.
func (p *OutcomePredictor) Predict(ctx context.Context, features FeatureVector) model.Prediction {
	if p.aiClient != nil {
		prediction, err := p.predictWithAI(ctx, features)
		if err == nil {
			return prediction
		}
		p.logger.Warn("AI prediction unavailable, using rule-based fallback",
			zap.Error(err),
			zap.String("patient_id", features.PatientID),
		)
	}

	return RuleBasedPredict(features)
}

// BatchPredict runs Predict for every patient. A failing lookup never
// aborts the batch; the affected patient gets the safe default.
func (p *OutcomePredictor) BatchPredict(ctx context.Context, patientIDs []string, lookup func(patientID string) (FeatureVector, error)) map[string]model.Prediction {
	predictions := make(map[string]model.Prediction, len(patientIDs))

	for _, id := range patientIDs {
		features, err := lookup(id)
		if err != nil {
			p.logger.Warn("feature lookup failed, using safe default prediction",
				zap.Error(err),
				zap.String("patient_id", id),
			)
			predictions[id] = SafeDefaultPrediction(id)
			continue
		}
		predictions[id] = p.Predict(ctx, features)
	}

	return predictions
}

// predictWithAI delegates to the generative collaborator and parses the
// response against the fixed schema
func (p *OutcomePredictor) predictWithAI(ctx context.Context, features FeatureVector) (model.Prediction, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildPredictionPrompt(features)),
		openai.UserMessage("Gere a previsão de tratamento em JSON."),
	}

	response, err := p.aiClient.Complete(ctx, messages)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("completion failed: %w", err)
	}

	parsed, err := parsePredictionResponse(response)
	if err != nil {
		p.logger.Warn("failed to parse AI prediction response",
			zap.Error(err),
			zap.String("patient_id", features.PatientID),
		)
		return model.Prediction{}, fmt.Errorf("parse failed: %w", err)
	}

	return normalizeAIPrediction(features, parsed), nil
}

// buildPredictionPrompt describes the feature vector and the expected JSON schema
func buildPredictionPrompt(features FeatureVector) string {
	return fmt.Sprintf(`Você é um assistente de fisioterapia que estima desfechos de tratamento.

Paciente:
- Idade: %d anos
- Patologia: %s
- Severidade (0-10): %.1f
- Comorbidades: %s
- Tratamentos anteriores: %s
- Adesão a consultas (0-1): %.2f
- Nível de dor (0-10): %.1f
- Estado funcional: %s

Responda SOMENTE com JSON válido no formato:
{
  "estimated_treatment_days": inteiro >= 7,
  "success_probability": 0.0-1.0,
  "abandonment_risk": "LOW" | "MEDIUM" | "HIGH",
  "complication_risk": 0.0-1.0,
  "confidence": 0.0-1.0,
  "factors": [{"name": "...", "impact": -1.0 a 1.0, "description": "..."}]
}`,
		features.Age,
		features.Pathology,
		features.Severity,
		strings.Join(features.Comorbidities, ", "),
		strings.Join(features.PreviousTreatments, ", "),
		features.AdherenceScore,
		features.PainLevel,
		features.FunctionalStatus,
	)
}

// parsePredictionResponse parses the collaborator response defensively
func parsePredictionResponse(response string) (aiPrediction, error) {
	var parsed aiPrediction
	if err := json.Unmarshal([]byte(ai.StripCodeFence(response)), &parsed); err != nil {
		return aiPrediction{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	risk := model.AbandonmentRisk(strings.ToUpper(strings.TrimSpace(parsed.AbandonmentRisk)))
	if risk != model.RiskLow && risk != model.RiskMedium && risk != model.RiskHigh {
		return aiPrediction{}, fmt.Errorf("invalid abandonment risk %q", parsed.AbandonmentRisk)
	}
	parsed.AbandonmentRisk = string(risk)

	if parsed.EstimatedTreatmentDays <= 0 {
		return aiPrediction{}, fmt.Errorf("invalid estimated treatment days %d", parsed.EstimatedTreatmentDays)
	}

	return parsed, nil
}

// normalizeAIPrediction clamps the parsed values into the documented ranges
func normalizeAIPrediction(features FeatureVector, parsed aiPrediction) model.Prediction {
	days := parsed.EstimatedTreatmentDays
	if days < minTreatmentDays {
		days = minTreatmentDays
	}

	confidence := parsed.Confidence
	if confidence <= ruleConfidence || confidence > 1 {
		confidence = aiConfidence
	}

	factors := make([]model.PredictionFactor, 0, len(parsed.Factors))
	for _, f := range parsed.Factors {
		f.Impact = clampFloat(f.Impact, -1, 1)
		factors = append(factors, f)
	}

	return model.Prediction{
		PatientID:              features.PatientID,
		Pathology:              features.Pathology,
		EstimatedTreatmentDays: days,
		SuccessProbability:     clampFloat(parsed.SuccessProbability, minSuccessProb, maxSuccessProb),
		AbandonmentRisk:        model.AbandonmentRisk(parsed.AbandonmentRisk),
		ComplicationRisk:       clampFloat(parsed.ComplicationRisk, 0.05, 0.8),
		ReassessmentNeeded:     features.Severity > 6 || features.Age > 70,
		Confidence:             confidence,
		Factors:                factors,
		GeneratedAt:            time.Now(),
	}
}

// RuleBasedPredict is the deterministic fallback. It is a pure function
// over the feature vector and never fails.
func RuleBasedPredict(features FeatureVector) model.Prediction {
	days := baseTreatmentDays
	success := baseSuccessProb
	risk := model.RiskMedium
	var factors []model.PredictionFactor

	if features.Age > 65 {
		days += 14
		success -= 0.1
		factors = append(factors, model.PredictionFactor{
			Name:        "idade avançada",
			Impact:      -0.3,
			Description: fmt.Sprintf("Paciente com %d anos tende a recuperação mais lenta.", features.Age),
		})
	} else if features.Age > 0 && features.Age < 30 {
		days -= 7
		success += 0.1
		factors = append(factors, model.PredictionFactor{
			Name:        "idade jovem",
			Impact:      0.3,
			Description: "Pacientes jovens tendem a responder mais rápido ao tratamento.",
		})
	}

	if features.Severity > 7 {
		days += 21
		success -= 0.15
		risk = model.RiskHigh
		factors = append(factors, model.PredictionFactor{
			Name:        "severidade alta",
			Impact:      -0.5,
			Description: fmt.Sprintf("Quadro severo (%.0f/10) alonga o tratamento.", features.Severity),
		})
	} else if features.Severity < 4 {
		days -= 7
		success += 0.1
		risk = model.RiskLow
		factors = append(factors, model.PredictionFactor{
			Name:        "severidade baixa",
			Impact:      0.4,
			Description: "Quadro leve favorece alta precoce.",
		})
	}

	if mentionsHernia(features) {
		days += 28
		factors = append(factors, model.PredictionFactor{
			Name:        "patologia complexa",
			Impact:      -0.4,
			Description: "Hérnia ou cirurgia prévia exige progressão mais conservadora.",
		})
	}

	if features.AdherenceScore < 0.5 {
		factors = append(factors, model.PredictionFactor{
			Name:        "baixa adesão",
			Impact:      -0.3,
			Description: "Histórico de faltas e cancelamentos compromete o desfecho.",
		})
	}

	if days < minTreatmentDays {
		days = minTreatmentDays
	}

	return model.Prediction{
		PatientID:              features.PatientID,
		Pathology:              features.Pathology,
		EstimatedTreatmentDays: days,
		SuccessProbability:     clampFloat(success, minSuccessProb, maxSuccessProb),
		AbandonmentRisk:        risk,
		ComplicationRisk:       clampFloat(features.Severity/10+float64(features.Age)/100, 0.05, 0.8),
		ReassessmentNeeded:     features.Severity > 6 || features.Age > 70,
		Confidence:             ruleConfidence,
		Factors:                factors,
		GeneratedAt:            time.Now(),
	}
}

// SafeDefaultPrediction is the conservative estimate used only when patient
// data cannot be loaded at all.
func SafeDefaultPrediction(patientID string) model.Prediction {
	return model.Prediction{
		PatientID:              patientID,
		Pathology:              DefaultPathology,
		EstimatedTreatmentDays: safeTreatmentDays,
		SuccessProbability:     baseSuccessProb,
		AbandonmentRisk:        model.RiskMedium,
		ComplicationRisk:       0.3,
		Confidence:             safeConfidence,
		GeneratedAt:            time.Now(),
	}
}

// mentionsHernia reports whether the pathology or the raw history points at
// a disc hernia or prior surgery
func mentionsHernia(features FeatureVector) bool {
	if strings.Contains(strings.ToLower(features.Pathology), "hérnia") {
		return true
	}
	return strings.Contains(strings.ToLower(features.RawHistory), "cirurgia")
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
