package predictor

import "strings"

// DefaultPathology is assumed when no vocabulary entry matches the
// patient's medical history.
const DefaultPathology = "lesão musculoesquelética"

// TextClassifier extracts clinical categories from free text. The keyword
// implementation below is deliberately simple; a trained model can replace
// it without touching the feature extractor.
type TextClassifier interface {
	ClassifyPathology(text string) string
	ClassifySeverity(text string) float64
	ExtractComorbidities(text string) []string
	ExtractPreviousTreatments(text string) []string
}

// KeywordClassifier matches free text against fixed vocabularies
type KeywordClassifier struct {
	pathologies        []string
	comorbidities      []string
	previousTreatments []string
}

// NewKeywordClassifier creates a classifier with the built-in vocabularies
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		pathologies: []string{
			"hérnia de disco",
			"hérnia",
			"lombalgia",
			"cervicalgia",
			"tendinite",
			"bursite",
			"artrose",
			"escoliose",
			"fibromialgia",
			"entorse",
			"fratura",
			"lesão no joelho",
			"lesão no ombro",
			"avc",
		},
		comorbidities: []string{
			"diabetes",
			"hipertensão",
			"obesidade",
			"osteoporose",
			"cardiopatia",
			"depressão",
			"ansiedade",
			"artrite",
		},
		previousTreatments: []string{
			"cirurgia",
			"fisioterapia",
			"infiltração",
			"acupuntura",
			"quiropraxia",
			"rpg",
			"pilates",
		},
	}
}

// ClassifyPathology returns the first vocabulary pathology mentioned in the
// text, or DefaultPathology when nothing matches
func (c *KeywordClassifier) ClassifyPathology(text string) string {
	lower := strings.ToLower(text)
	for _, p := range c.pathologies {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return DefaultPathology
}

// ClassifySeverity maps severity keywords in assessment notes to a 0-10
// scale; unknown wording lands on the middle of the scale
func (c *KeywordClassifier) ClassifySeverity(text string) float64 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "grave"), strings.Contains(lower, "severo"), strings.Contains(lower, "severa"):
		return 8
	case strings.Contains(lower, "moderado"), strings.Contains(lower, "moderada"):
		return 5
	case strings.Contains(lower, "leve"):
		return 3
	}
	return 5
}

// ExtractComorbidities lists every vocabulary comorbidity mentioned in the text
func (c *KeywordClassifier) ExtractComorbidities(text string) []string {
	return matchAll(text, c.comorbidities)
}

// ExtractPreviousTreatments lists every vocabulary treatment mentioned in the text
func (c *KeywordClassifier) ExtractPreviousTreatments(text string) []string {
	return matchAll(text, c.previousTreatments)
}

func matchAll(text string, vocabulary []string) []string {
	lower := strings.ToLower(text)
	var matches []string
	for _, term := range vocabulary {
		if strings.Contains(lower, term) {
			matches = append(matches, term)
		}
	}
	return matches
}
