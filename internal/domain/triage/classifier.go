// Package triage classifies free-text patient requests. Classification is a
// pure function over fixed keyword tables: identical inputs always produce an
// identical result, which the audit trail depends on.
package triage

import "strings"

// Category is the intent category of a patient request.
type Category string

const (
	CategoryEmergency  Category = "emergency"
	CategoryMedical    Category = "medical"
	CategoryNonMedical Category = "non_medical"
)

// Urgency estimates how time-sensitive a request is.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Distress estimates patient emotional distress, independent of intent.
type Distress string

const (
	DistressNone   Distress = "none"
	DistressLow    Distress = "low"
	DistressMedium Distress = "medium"
	DistressHigh   Distress = "high"
)

// Classification is the immutable result of classifying one request.
type Classification struct {
	Category        Category `json:"category"`
	Urgency         Urgency  `json:"urgency"`
	Distress        Distress `json:"distress"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// Keyword tables. Order matters: category precedence is emergency, medical,
// non-medical, and matched keywords are reported in table order.
var emergencyKeywords = []string{
	"chest pain", "can't breathe", "can not breathe", "cannot breathe",
	"severe bleeding", "unconscious", "heart attack", "stroke", "choking",
	"severe pain", "dying",
}

var medicalKeywords = []string{
	"pain", "hurt", "medication", "medicine", "pill", "doctor", "nurse",
	"sick", "nausea", "dizzy", "fever", "symptom", "treatment", "injection",
	"iv", "blood pressure", "temperature",
}

var nonMedicalKeywords = []string{
	"water", "temperature", "tv", "television", "light", "blanket", "pillow",
	"room", "visitor", "time", "date", "weather", "bathroom", "toilet",
	"window", "curtain",
}

var highDistressKeywords = []string{
	"help", "please help", "emergency", "urgent", "severe", "unbearable",
	"can't take it", "worse", "getting worse",
}

var mediumDistressKeywords = []string{
	"uncomfortable", "need", "please", "soon", "waiting", "still", "again",
	"repeatedly",
}

const (
	emergencyConfidence  = 0.99
	medicalConfidence    = 0.85
	nonMedicalConfidence = 0.90
	defaultConfidence    = 0.60
)

// historyWindow is how many recent requests the repeated-request check
// considers.
const historyWindow = 3

// Classifier classifies patient request text. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify maps request text plus the patient's recent request history to a
// Classification. Empty or unmatchable text falls back to the medical
// category: unclassifiable input is never treated as the lowest-risk kind.
func (cl *Classifier) Classify(text string, recentHistory []string) Classification {
	lowered := strings.ToLower(strings.TrimSpace(text))

	c := Classification{
		Category:   CategoryMedical,
		Confidence: defaultConfidence,
	}

	if matched := matchAll(lowered, emergencyKeywords); len(matched) > 0 {
		c.Category = CategoryEmergency
		c.Confidence = emergencyConfidence
		c.MatchedKeywords = matched
	} else if matched := matchAll(lowered, medicalKeywords); len(matched) > 0 {
		c.Category = CategoryMedical
		c.Confidence = medicalConfidence
		c.MatchedKeywords = matched
	} else if matched := matchAll(lowered, nonMedicalKeywords); len(matched) > 0 {
		c.Category = CategoryNonMedical
		c.Confidence = nonMedicalConfidence
		c.MatchedKeywords = matched
	}

	c.Distress = scoreDistress(lowered, recentHistory)
	c.Urgency = deriveUrgency(c.Category, c.Distress)

	return c
}

// scoreDistress is scored independently of intent: high-distress keywords win,
// then repetition against recent history, then medium-distress keywords.
func scoreDistress(lowered string, recentHistory []string) Distress {
	if containsAny(lowered, highDistressKeywords) {
		return DistressHigh
	}
	if isRepeatedRequest(lowered, recentHistory) {
		return DistressMedium
	}
	if containsAny(lowered, mediumDistressKeywords) {
		return DistressLow
	}
	return DistressNone
}

// isRepeatedRequest reports whether the text restates one of the last few
// requests, by substring containment in either direction.
func isRepeatedRequest(lowered string, recentHistory []string) bool {
	if lowered == "" {
		return false
	}
	start := len(recentHistory) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, prev := range recentHistory[start:] {
		p := strings.ToLower(strings.TrimSpace(prev))
		if p == "" {
			continue
		}
		if strings.Contains(p, lowered) || strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

func deriveUrgency(category Category, distress Distress) Urgency {
	switch {
	case category == CategoryEmergency:
		return UrgencyCritical
	case distress == DistressHigh:
		return UrgencyHigh
	case category == CategoryNonMedical:
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}

func matchAll(lowered string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// MedicationKeywords are the words that mark a request as medication-related
// for policy purposes, regardless of which category won.
var MedicationKeywords = []string{"medication", "medicine", "pill", "drug", "painkiller"}

// MentionsMedication reports whether the text contains a medication keyword.
func MentionsMedication(text string) bool {
	return containsAny(strings.ToLower(text), MedicationKeywords)
}
