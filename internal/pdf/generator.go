package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

// PDFGenerator renders analysis reports as printable documents
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// ReportData contains all data needed for report generation
type ReportData struct {
	PatientName string
	DateRange   string
	Analysis    model.AnalysisReport
	Prediction  *model.Prediction
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("patient_name", data.PatientName),
		zap.String("date_range", data.DateRange),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf, "Relatório de Análise Clínica", data.PatientName, data.DateRange)
	g.addSummary(pdf, data.Analysis.Summary)
	g.addStatistics(pdf, data.Analysis.Statistics)
	g.addTrends(pdf, data.Analysis.Trends)
	g.addInsights(pdf, data.Analysis.Insights)
	g.addAlerts(pdf, data.Analysis.Alerts)
	if data.Prediction != nil {
		g.addPrediction(pdf, *data.Prediction)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, title, patientName, dateRange string) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Paciente: %s", patientName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Período: %s", dateRange), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Gerado em: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addSummary adds the overall status, risk level and key findings
func (g *PDFGenerator) addSummary(pdf *gofpdf.Fpdf, summary model.Summary) {
	g.addSectionHeader(pdf, "Resumo")

	pdf.CellFormat(0, 6, fmt.Sprintf("Situação geral: %s", summary.OverallStatus), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Nível de risco: %s", summary.RiskLevel), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(summary.KeyFindings) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Principais achados:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, finding := range summary.KeyFindings {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", finding), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}

	if len(summary.Recommendations) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Recomendações:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, rec := range summary.Recommendations {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s", rec), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}

// addStatistics adds the rolling metric averages
func (g *PDFGenerator) addStatistics(pdf *gofpdf.Fpdf, stats model.Statistics) {
	g.addSectionHeader(pdf, "Estatísticas do Período")

	if stats.EntryCount == 0 {
		pdf.CellFormat(0, 8, "Nenhum registro de diário no período.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.CellFormat(0, 6, fmt.Sprintf("Registros considerados: %d", stats.EntryCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Dor média: %.1f/10", stats.AvgPain), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Energia média: %.1f/5", stats.AvgEnergy), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Sono médio: %.1f/5", stats.AvgSleep), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Humor médio: %.1f/5", stats.AvgMood), "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

// addTrends adds the per-metric trend section
func (g *PDFGenerator) addTrends(pdf *gofpdf.Fpdf, trends []model.Trend) {
	g.addSectionHeader(pdf, "Tendências")

	if len(trends) == 0 {
		pdf.CellFormat(0, 8, "Registros insuficientes para análise de tendências.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, trend := range trends {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, trend.Label, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  %s", trend.Description), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Valor atual: %.1f | Média: %.1f | Período: %s",
			trend.CurrentValue, trend.AverageValue, trend.Period), "", 1, "L", false, 0, "")
		if trend.IsSignificant {
			pdf.CellFormat(0, 5, "  Tendência estatisticamente relevante.", "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

// addInsights adds the detected patterns section
func (g *PDFGenerator) addInsights(pdf *gofpdf.Fpdf, insights []model.Insight) {
	g.addSectionHeader(pdf, "Padrões Detectados")

	if len(insights) == 0 {
		pdf.CellFormat(0, 8, "Nenhum padrão detectado no período.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, insight := range insights {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, insight.Title, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  %s", insight.Description), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Recomendação: %s", insight.Recommendation), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Confiança: %.0f%% (%d registros)",
			insight.Confidence*100, insight.BasedOnEntries), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

// addAlerts adds the alert section
func (g *PDFGenerator) addAlerts(pdf *gofpdf.Fpdf, alerts []model.Alert) {
	g.addSectionHeader(pdf, "Alertas")

	if len(alerts) == 0 {
		pdf.CellFormat(0, 8, "Nenhum alerta ativo.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, alert := range alerts {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("[%s] %s", alert.Severity, alert.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("  %s", alert.Message), "", 1, "L", false, 0, "")
		if len(alert.SuggestedActions) > 0 {
			pdf.CellFormat(0, 5, fmt.Sprintf("  Ações sugeridas: %s", strings.Join(alert.SuggestedActions, "; ")), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

// addPrediction adds the treatment outcome estimate section
func (g *PDFGenerator) addPrediction(pdf *gofpdf.Fpdf, prediction model.Prediction) {
	g.addSectionHeader(pdf, "Previsão de Tratamento")

	pdf.CellFormat(0, 6, fmt.Sprintf("Patologia: %s", prediction.Pathology), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Duração estimada: %d dias", prediction.EstimatedTreatmentDays), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Probabilidade de sucesso: %.0f%%", prediction.SuccessProbability*100), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Risco de abandono: %s", prediction.AbandonmentRisk), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Risco de complicações: %.0f%%", prediction.ComplicationRisk*100), "", 1, "L", false, 0, "")
	if prediction.ReassessmentNeeded {
		pdf.CellFormat(0, 6, "Reavaliação antecipada recomendada.", "", 1, "L", false, 0, "")
	}

	if len(prediction.Factors) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Fatores considerados:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, factor := range prediction.Factors {
			pdf.CellFormat(0, 5, fmt.Sprintf("  - %s (%+.1f): %s", factor.Name, factor.Impact, factor.Description), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}
