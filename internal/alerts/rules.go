package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/internal/ai"
	"github.com/fisiocore/backend/pkg/model"
)

const (
	highComplicationThreshold = 0.7
	inactivityWindow          = 14 * 24 * time.Hour
	defaultMaxInactiveAlerts  = 5
	cancellationWindow        = 30 * 24 * time.Hour
	cancellationRateThreshold = 0.30
	newPatientDropRatio       = 0.70
	workloadImbalanceFactor   = 2.0
	lowDemandHourCount        = 3
)

// CompletionClient produces free-text completions for action suggestions.
// May be nil; the evaluators then use the fixed fallback actions.
type CompletionClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// fallbackActions is used whenever the generative suggestion is
// unavailable or unparseable
var fallbackActions = []string{
	"Entrar em contato imediato com o paciente",
	"Revisar o plano de tratamento",
	"Conversar com o paciente sobre barreiras à adesão",
}

// EvaluationInput is the snapshot the rule set evaluates over. Now defaults
// to time.Now() when zero so tests can pin the reference instant.
type EvaluationInput struct {
	Now          time.Time
	Patients     []model.Patient
	Appointments []model.Appointment
	Predictions  map[string]model.Prediction
}

func (in EvaluationInput) reference() time.Time {
	if in.Now.IsZero() {
		return time.Now()
	}
	return in.Now
}

// RuleSet holds the five alert evaluators
type RuleSet struct {
	aiClient    CompletionClient
	maxInactive int
	logger      *zap.Logger
}

// NewRuleSet creates a RuleSet. aiClient may be nil; a non-positive
// maxInactiveAlerts falls back to the default cap.
func NewRuleSet(aiClient CompletionClient, maxInactiveAlerts int, logger *zap.Logger) *RuleSet {
	if maxInactiveAlerts <= 0 {
		maxInactiveAlerts = defaultMaxInactiveAlerts
	}
	return &RuleSet{
		aiClient:    aiClient,
		maxInactive: maxInactiveAlerts,
		logger:      logger,
	}
}

func newAlert(alertType model.AlertType, severity model.AlertSeverity, title, message string, affected []string, actions []string, now time.Time) model.Alert {
	return model.Alert{
		ID:               uuid.New().String(),
		Type:             alertType,
		Severity:         severity,
		Title:            title,
		Message:          message,
		AffectedEntities: affected,
		SuggestedActions: actions,
		CreatedAt:        now,
	}
}

// EvaluateAbandonmentRisk raises one HIGH alert per patient whose
// prediction carries a HIGH abandonment risk
func (r *RuleSet) EvaluateAbandonmentRisk(ctx context.Context, in EvaluationInput) []model.Alert {
	now := in.reference()
	names := patientNames(in.Patients)

	var ids []string
	for id, prediction := range in.Predictions {
		if prediction.AbandonmentRisk == model.RiskHigh {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var alerts []model.Alert
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		alerts = append(alerts, newAlert(
			model.AlertAbandonmentRisk,
			model.SeverityHigh,
			"Risco de abandono de tratamento",
			fmt.Sprintf("O paciente %s apresenta alto risco de abandonar o tratamento.", name),
			[]string{id},
			r.suggestActions(ctx, name),
			now,
		))
	}
	return alerts
}

// suggestActions asks the generative collaborator for concrete next steps
// and falls back to the fixed action list on any failure
func (r *RuleSet) suggestActions(ctx context.Context, patientName string) []string {
	if r.aiClient == nil {
		return fallbackActions
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(`Você é um assistente de gestão de clínicas de fisioterapia.
Responda SOMENTE com um array JSON de no máximo 3 strings curtas, cada uma
uma ação concreta para reter um paciente em risco de abandono.`),
		openai.UserMessage(fmt.Sprintf("Paciente: %s. Sugira ações de retenção.", patientName)),
	}

	response, err := r.aiClient.Complete(ctx, messages)
	if err != nil {
		r.logger.Warn("action suggestion unavailable, using fallback", zap.Error(err))
		return fallbackActions
	}

	var actions []string
	if err := json.Unmarshal([]byte(ai.StripCodeFence(response)), &actions); err != nil || len(actions) == 0 {
		r.logger.Warn("unparseable action suggestion, using fallback", zap.Error(err))
		return fallbackActions
	}
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

// EvaluateSpecialAttention raises HIGH alerts for predictions with high
// complication risk and MEDIUM alerts for patients with no completed
// appointment in the trailing two weeks. Inactivity alerts are capped so a
// quiet clinic does not flood the feed.
func (r *RuleSet) EvaluateSpecialAttention(in EvaluationInput) []model.Alert {
	now := in.reference()
	names := patientNames(in.Patients)

	var ids []string
	for id, prediction := range in.Predictions {
		if prediction.ComplicationRisk > highComplicationThreshold {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var alerts []model.Alert
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		alerts = append(alerts, newAlert(
			model.AlertSpecialAttention,
			model.SeverityHigh,
			"Paciente requer atenção especial",
			fmt.Sprintf("O paciente %s apresenta risco elevado de complicações (%.0f%%).", name, in.Predictions[id].ComplicationRisk*100),
			[]string{id},
			nil,
			now,
		))
	}

	lastCompleted := make(map[string]time.Time)
	for _, appointment := range in.Appointments {
		if appointment.Status != model.AppointmentCompleted {
			continue
		}
		if appointment.ScheduledAt.After(lastCompleted[appointment.PatientID]) {
			lastCompleted[appointment.PatientID] = appointment.ScheduledAt
		}
	}

	cutoff := now.Add(-inactivityWindow)
	inactive := 0
	for _, patient := range in.Patients {
		if inactive >= r.maxInactive {
			break
		}
		if patient.DeletedAt != nil {
			continue
		}
		last, ok := lastCompleted[patient.ID]
		if ok && last.After(cutoff) {
			continue
		}
		message := fmt.Sprintf("O paciente %s não tem consultas concluídas nos últimos 14 dias.", patient.Name)
		if !ok {
			message = fmt.Sprintf("O paciente %s nunca teve uma consulta concluída.", patient.Name)
		}
		alerts = append(alerts, newAlert(
			model.AlertInactivePatient,
			model.SeverityMedium,
			"Paciente inativo",
			message,
			[]string{patient.ID},
			nil,
			now,
		))
		inactive++
	}

	return alerts
}

// EvaluateTreatmentImprovement raises MEDIUM alerts for patients whose
// success probability sits in the uncertain middle band and whose
// prediction names at least one negative factor
func (r *RuleSet) EvaluateTreatmentImprovement(in EvaluationInput) []model.Alert {
	now := in.reference()
	names := patientNames(in.Patients)

	var ids []string
	for id := range in.Predictions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var alerts []model.Alert
	for _, id := range ids {
		prediction := in.Predictions[id]
		if prediction.SuccessProbability <= 0.3 || prediction.SuccessProbability >= 0.6 {
			continue
		}
		var negatives []string
		for _, factor := range prediction.Factors {
			if factor.Impact < 0 {
				negatives = append(negatives, factor.Name)
			}
		}
		if len(negatives) == 0 {
			continue
		}
		name := names[id]
		if name == "" {
			name = id
		}
		alerts = append(alerts, newAlert(
			model.AlertTreatmentImprovement,
			model.SeverityMedium,
			"Oportunidade de melhoria no tratamento",
			fmt.Sprintf("O tratamento de %s tem probabilidade de sucesso incerta (%.0f%%). Fatores negativos: %s.",
				name, prediction.SuccessProbability*100, strings.Join(negatives, ", ")),
			[]string{id},
			nil,
			now,
		))
	}
	return alerts
}

// EvaluateConcerningTrends raises a HIGH alert when the trailing 30-day
// cancellation rate crosses the threshold and a MEDIUM alert when new
// patient registrations fall well below the previous month
func (r *RuleSet) EvaluateConcerningTrends(in EvaluationInput) []model.Alert {
	now := in.reference()
	var alerts []model.Alert

	cutoff := now.Add(-cancellationWindow)
	total, cancelled := 0, 0
	for _, appointment := range in.Appointments {
		if appointment.ScheduledAt.Before(cutoff) || appointment.ScheduledAt.After(now) {
			continue
		}
		total++
		if appointment.Status == model.AppointmentCancelled || appointment.Status == model.AppointmentNoShow {
			cancelled++
		}
	}
	if total > 0 {
		rate := float64(cancelled) / float64(total)
		if rate > cancellationRateThreshold {
			alerts = append(alerts, newAlert(
				model.AlertHighCancellation,
				model.SeverityHigh,
				"Taxa de cancelamento elevada",
				fmt.Sprintf("%.0f%% das consultas dos últimos 30 dias foram canceladas ou perdidas (%d de %d).", rate*100, cancelled, total),
				nil,
				nil,
				now,
			))
		}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := monthStart.AddDate(0, -1, 0)
	thisMonth, lastMonth := 0, 0
	for _, patient := range in.Patients {
		switch {
		case !patient.CreatedAt.Before(monthStart) && !patient.CreatedAt.After(now):
			thisMonth++
		case !patient.CreatedAt.Before(prevStart) && patient.CreatedAt.Before(monthStart):
			lastMonth++
		}
	}
	if lastMonth > 0 && float64(thisMonth) < newPatientDropRatio*float64(lastMonth) {
		alerts = append(alerts, newAlert(
			model.AlertNewPatientDrop,
			model.SeverityMedium,
			"Queda no cadastro de novos pacientes",
			fmt.Sprintf("Novos pacientes este mês: %d, contra %d no mês anterior.", thisMonth, lastMonth),
			nil,
			nil,
			now,
		))
	}

	return alerts
}

// EvaluateOperational raises a MEDIUM alert when one therapist carries more
// than twice the load of another and a LOW alert naming the lowest-demand
// appointment hours
func (r *RuleSet) EvaluateOperational(in EvaluationInput) []model.Alert {
	now := in.reference()
	var alerts []model.Alert

	cutoff := now.Add(-cancellationWindow)
	load := make(map[string]int)
	hours := make(map[int]int)
	for _, appointment := range in.Appointments {
		if appointment.ScheduledAt.Before(cutoff) || appointment.ScheduledAt.After(now) {
			continue
		}
		if appointment.TherapistID != "" {
			load[appointment.TherapistID]++
		}
		hours[appointment.ScheduledAt.Hour()]++
	}

	if len(load) >= 2 {
		maxID, minID := "", ""
		for id, count := range load {
			if maxID == "" || count > load[maxID] || (count == load[maxID] && id < maxID) {
				maxID = id
			}
			if minID == "" || count < load[minID] || (count == load[minID] && id < minID) {
				minID = id
			}
		}
		if float64(load[maxID]) > workloadImbalanceFactor*float64(load[minID]) {
			alerts = append(alerts, newAlert(
				model.AlertWorkloadImbalance,
				model.SeverityMedium,
				"Desequilíbrio de carga entre fisioterapeutas",
				fmt.Sprintf("Um fisioterapeuta atendeu %d consultas enquanto outro atendeu %d nos últimos 30 dias.", load[maxID], load[minID]),
				[]string{maxID, minID},
				nil,
				now,
			))
		}
	}

	if len(hours) > lowDemandHourCount {
		type hourCount struct {
			hour  int
			count int
		}
		ranked := make([]hourCount, 0, len(hours))
		for hour, count := range hours {
			ranked = append(ranked, hourCount{hour, count})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].count != ranked[j].count {
				return ranked[i].count < ranked[j].count
			}
			return ranked[i].hour < ranked[j].hour
		})
		low := make([]string, 0, lowDemandHourCount)
		for _, hc := range ranked[:lowDemandHourCount] {
			low = append(low, fmt.Sprintf("%02dh", hc.hour))
		}
		alerts = append(alerts, newAlert(
			model.AlertLowDemandHours,
			model.SeverityLow,
			"Horários de baixa demanda",
			fmt.Sprintf("Os horários com menos consultas nos últimos 30 dias: %s.", strings.Join(low, ", ")),
			nil,
			nil,
			now,
		))
	}

	return alerts
}

func patientNames(patients []model.Patient) map[string]string {
	names := make(map[string]string, len(patients))
	for _, patient := range patients {
		names[patient.ID] = patient.Name
	}
	return names
}
