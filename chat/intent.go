package chat

import (
	"regexp"
	"strings"
)

// Intent names the engine a message should be routed to.
type Intent string

const (
	// IntentGreeting short-circuits: no retrieval, canned welcome.
	IntentGreeting Intent = "greeting"

	// IntentRAG routes to the knowledge base.
	IntentRAG Intent = "rag"

	// IntentRuleBased routes to sensor diagnostics.
	IntentRuleBased Intent = "rule_based"

	// IntentHybrid runs both and merges the answers.
	IntentHybrid Intent = "hybrid"

	// IntentAction is an explicit device command (add nutrient etc.).
	IntentAction Intent = "action"
)

var greetingKeywords = []string{
	"halo", "hai", "hello", "hi", "hey", "selamat pagi",
	"selamat siang", "selamat sore", "selamat malam", "pagi", "siang", "sore", "malam",
}

var sensorKeywords = []string{
	"ph", "tds", "ec", "suhu", "temp", "kelembapan", "humidity",
	"sensor", "bacaan", "reading", "monitor", "ppm",
}

var knowledgeKeywords = []string{
	"cara", "bagaimana", "how", "apa", "what", "mengapa", "why",
	"panduan", "guide", "tutorial", "jenis", "type", "kelebihan",
	"advantages", "manfaat", "sistem", "setup", "install", "perbedaan",
	"jelaskan", "explain",
}

var actionKeywords = []string{"perbaiki", "fix", "atasi", "solve", "lakukan", "do", "harus"}

// IsGreeting reports whether the message is only a greeting: it must start
// with (or equal) a greeting word and be at most 3 words long.
func IsGreeting(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	if len(strings.Fields(message)) > 3 {
		return false
	}
	for _, kw := range greetingKeywords {
		if lower == kw || strings.HasPrefix(lower, kw) {
			return true
		}
	}
	return false
}

// DetectIntent classifies a message, given whether sensor values were
// extracted from it, and scores its confidence in the routing decision.
func DetectIntent(message string, hasSensorData bool) (Intent, float64) {
	if IsGreeting(message) {
		return IntentGreeting, 1.0
	}

	lower := strings.ToLower(message)

	sensorMatches := 0
	for _, kw := range sensorKeywords {
		if strings.Contains(lower, kw) {
			sensorMatches++
		}
	}
	knowledgeMatches := 0
	for _, kw := range knowledgeKeywords {
		if strings.Contains(lower, kw) {
			knowledgeMatches++
		}
	}
	hasActionKeywords := containsAny(lower, actionKeywords)

	switch {
	case hasSensorData && (knowledgeMatches > 0 || hasActionKeywords):
		// e.g. "pH saya 4.5, bagaimana cara memperbaikinya?"
		if knowledgeMatches >= 2 || hasActionKeywords {
			return IntentHybrid, 0.9
		}
		return IntentHybrid, 0.7
	case hasSensorData:
		// e.g. "pH saya 4.5, apakah normal?"
		return IntentRuleBased, 0.85
	case sensorMatches > 0 && knowledgeMatches > 0:
		// e.g. "bagaimana cara mengukur pH yang benar?"
		return IntentRAG, 0.8
	case sensorMatches > 0:
		// e.g. "apa range pH yang ideal?"
		return IntentRAG, 0.75
	case knowledgeMatches > 0:
		confidence := 0.6 + float64(knowledgeMatches)*0.1
		if confidence > 0.9 {
			confidence = 0.9
		}
		return IntentRAG, confidence
	default:
		return IntentRAG, 0.5
	}
}

// ActionType identifies an explicit device command.
type ActionType string

const (
	ActionAddNutrient ActionType = "add_nutrient"
	ActionAddWater    ActionType = "add_water"
	ActionPHDown      ActionType = "add_ph_down"
	ActionPHUp        ActionType = "add_ph_up"
)

// knowledgeExcludes mark knowledge-seeking phrasings that must never be
// treated as action commands ("cara menambah nutrisi" asks how, it does not
// ask the system to act).
var knowledgeExcludes = []string{
	"cara ", "bagaimana ", "gimana ", "kapan ", "kenapa ", "mengapa ", "apa yang harus",
}

var actionPatterns = map[ActionType][]*regexp.Regexp{
	ActionAddNutrient: {
		regexp.MustCompile(`\btambah\s+nutrisi\b`),
		regexp.MustCompile(`\bkasih\s+nutrisi\b`),
		regexp.MustCompile(`\bberi\s+nutrisi\b`),
	},
	ActionAddWater: {
		regexp.MustCompile(`\btambah\s+air\b`),
		regexp.MustCompile(`\bkasih\s+air\b`),
		regexp.MustCompile(`\bberi\s+air\b`),
	},
	ActionPHDown: {
		regexp.MustCompile(`\bturunkan\s+ph\b`),
		regexp.MustCompile(`\bph\s+down\b`),
		regexp.MustCompile(`\btambah\s+asam\b`),
	},
	ActionPHUp: {
		regexp.MustCompile(`\bnaikkan\s+ph\b`),
		regexp.MustCompile(`\bph\s+up\b`),
		regexp.MustCompile(`\btambah\s+basa\b`),
	},
}

// DetectAction returns the explicit device command in the message, if any,
// with a fixed 0.8 confidence. Knowledge-seeking phrasings are excluded
// first.
func DetectAction(message string) (ActionType, float64, bool) {
	lower := strings.ToLower(message)
	for _, exclude := range knowledgeExcludes {
		if strings.Contains(lower, exclude) {
			return "", 0, false
		}
	}
	for action, patterns := range actionPatterns {
		for _, pattern := range patterns {
			if pattern.MatchString(lower) {
				return action, 0.8, true
			}
		}
	}
	return "", 0, false
}

// uselessPatterns mark grounded answers that admit to having no
// information. Checked against the first 100 characters only.
var uselessPatterns = []string{
	"dokumen tidak",
	"tidak ada informasi",
	"tidak menyebutkan",
	"tidak memberikan",
	"tidak menjelaskan",
	"tidak disebutkan",
	"data yang tersedia",
	"tidak terdapat",
	"maaf, aku tidak punya info",
	"maaf, saya tidak punya info",
	"informasi tidak tersedia",
}

// IsUselessAnswer reports whether a generated answer carries no usable
// information and should be replaced or suppressed.
func IsUselessAnswer(answer string) bool {
	if answer == "" {
		return true
	}
	start := strings.ToLower(strings.TrimSpace(answer))
	if len(start) > 100 {
		start = start[:100]
	}
	for _, pattern := range uselessPatterns {
		if strings.Contains(start, pattern) {
			return true
		}
	}
	return false
}

// isStatusQuery reports whether the user asks about current conditions
// rather than methods; method phrasings take precedence.
func isStatusQuery(message string) bool {
	lower := strings.ToLower(message)

	methodKeywords := []string{"cara", "bagaimana cara", "gimana cara", "how to", "langkah", "metode", "teknik", "tips"}
	if containsAny(lower, methodKeywords) {
		return false
	}

	statusKeywords := []string{
		"kondisi", "status", "bagaimana", "gimana", "keadaan",
		"baik", "sehat", "normal", "aman", "ok", "oke",
		"cek", "periksa", "lihat", "monitor",
	}
	return containsAny(lower, statusKeywords)
}
