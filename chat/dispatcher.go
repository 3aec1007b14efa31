package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/canopya/canopya/rag"
)

// Answerer is the knowledge-base pipeline boundary (implemented by
// rag.Engine).
type Answerer interface {
	Query(ctx context.Context, query string, history []rag.Message, userID string) (*rag.Result, error)
}

// Actuator executes explicit device commands against the growing system.
// Optional; without one, command-like messages route through the normal
// intent flow.
type Actuator interface {
	Execute(ctx context.Context, action ActionType) (string, error)
}

// Request is one inbound chat message.
type Request struct {
	Message string        `json:"message"`
	UserID  string        `json:"user_id,omitempty"`
	History []rag.Message `json:"history,omitempty"`
}

// Response is the dispatcher's answer with routing metadata.
type Response struct {
	Answer           string         `json:"answer"`
	Intent           Intent         `json:"intent"`
	Confidence       float64        `json:"confidence"`
	HasSensorData    bool           `json:"has_sensor_data"`
	SensorData       *SensorReading `json:"sensor_data,omitempty"`
	RAGConfidence    float64        `json:"rag_confidence,omitempty"`
	Sources          []string       `json:"sources,omitempty"`
	Pages            []int          `json:"pages,omitempty"`
	Images           []string       `json:"images,omitempty"`
	ImageScores      []float64      `json:"image_scores,omitempty"`
	NumImages        int            `json:"num_images,omitempty"`
	HasVisualSupport bool           `json:"has_visual_support,omitempty"`
	UsedFallback     bool           `json:"used_fallback,omitempty"`
	QueryID          string         `json:"query_id,omitempty"`
}

// Dispatcher routes messages between the knowledge pipeline and the
// rule-based diagnostics engine based on detected intent.
type Dispatcher struct {
	engine   Answerer
	rules    *RuleEngine
	actuator Actuator
}

// NewDispatcher wires the dispatcher. actuator may be nil.
func NewDispatcher(engine Answerer, rules *RuleEngine, actuator Actuator) *Dispatcher {
	if rules == nil {
		rules = NewRuleEngine()
	}
	return &Dispatcher{engine: engine, rules: rules, actuator: actuator}
}

var actionLabels = map[ActionType]string{
	ActionAddNutrient: "Menambah Nutrisi",
	ActionAddWater:    "Menambah Air",
	ActionPHDown:      "Menambah pH Down",
	ActionPHUp:        "Menambah pH Up",
}

// Chat processes one user turn.
func (d *Dispatcher) Chat(ctx context.Context, req Request) (*Response, error) {
	// Explicit device commands bypass retrieval entirely
	if d.actuator != nil {
		if action, confidence, ok := DetectAction(req.Message); ok {
			return d.executeAction(ctx, action, confidence)
		}
	}

	sensorData := ExtractSensorData(req.Message)
	intent, confidence := DetectIntent(req.Message, sensorData != nil)
	slog.Info("Intent detected", "intent", intent, "confidence", confidence)

	resp := &Response{
		Intent:        intent,
		Confidence:    confidence,
		HasSensorData: sensorData != nil,
		SensorData:    sensorData,
	}

	if intent == IntentGreeting {
		resp.Answer = "Halo! Apakah kamu ingin saya bantu mengecek sesuatu atau ada pertanyaan tentang sistem hidroponik?"
		return resp, nil
	}

	var ragResult *rag.Result
	if intent == IntentRAG || intent == IntentHybrid {
		result, err := d.engine.Query(ctx, req.Message, req.History, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("knowledge query failed: %w", err)
		}
		ragResult = result
		resp.RAGConfidence = result.Confidence
		resp.Sources = result.Sources
		resp.Pages = result.Pages
		resp.Images = result.Images
		resp.ImageScores = result.ImageScores
		resp.NumImages = result.NumImages
		resp.HasVisualSupport = result.HasVisualSupport
		resp.UsedFallback = result.UsedFallback
		resp.QueryID = result.QueryID
	}

	var report *Report
	if (intent == IntentRuleBased || intent == IntentHybrid) && sensorData != nil {
		report = d.rules.DiagnoseAll(sensorData)
	}

	resp.Answer = d.formatAnswer(intent, req.Message, ragResult, report)
	return resp, nil
}

// executeAction runs a device command and reports the outcome.
func (d *Dispatcher) executeAction(ctx context.Context, action ActionType, confidence float64) (*Response, error) {
	resp := &Response{Intent: IntentAction, Confidence: confidence}

	outcome, err := d.actuator.Execute(ctx, action)
	if err != nil {
		slog.Error("Action execution failed", "action", action, "error", err)
		resp.Answer = fmt.Sprintf("Gagal melakukan aksi: %v", err)
		return resp, nil
	}

	resp.Answer = fmt.Sprintf("%s berhasil!\n\n%s", actionLabels[action], outcome)
	return resp, nil
}

// formatAnswer assembles the final conversational reply.
func (d *Dispatcher) formatAnswer(intent Intent, query string, ragResult *rag.Result, report *Report) string {
	switch intent {
	case IntentRuleBased:
		if report == nil {
			return "Maaf, saya tidak dapat memproses pertanyaan Anda. Bisa tolong diulang dengan lebih spesifik?"
		}
		answer := report.Summary
		for _, diag := range report.Diagnostics {
			if diag.Severity == SeverityNormal {
				continue
			}
			answer += fmt.Sprintf(" Saya lihat %s kamu sedang tidak baik-baik saja, saat ini %g dan idealnya %s, maka %s",
				strings.ToLower(diag.Parameter), diag.Value, diag.OptimalRange, lowerFirst(diag.Action))
		}
		return rag.StripMarkdown(answer)

	case IntentRAG:
		if ragResult == nil {
			return "Maaf, saya tidak dapat memproses pertanyaan Anda. Bisa tolong diulang dengan lebih spesifik?"
		}
		if IsUselessAnswer(ragResult.Answer) {
			return "Maaf, saya tidak menemukan informasi spesifik untuk pertanyaan Anda. Bisa tolong lebih spesifik?"
		}
		answer := ragResult.Answer
		answer += imageFooter(ragResult.NumImages)
		if ragResult.UsedFallback {
			answer += "\n\nTips Umum Hidroponik"
		} else if len(ragResult.Sources) > 0 {
			sources := ragResult.Sources
			if len(sources) > 2 {
				sources = sources[:2]
			}
			answer += "\n\nSumber: " + strings.Join(sources, ", ")
		}
		return rag.StripMarkdown(answer)

	case IntentHybrid:
		if ragResult == nil {
			return "Maaf, saya tidak dapat memproses pertanyaan Anda. Bisa tolong diulang dengan lebih spesifik?"
		}
		answer := ragResult.Answer
		// Sensor warnings only when the user asked about current condition
		if report != nil && isStatusQuery(query) {
			for _, diag := range report.Diagnostics {
				if diag.Severity == SeverityNormal {
					continue
				}
				answer += fmt.Sprintf(" Saya lihat %s kamu sedang tidak baik-baik saja, saat ini %g dan idealnya %s, maka coba kamu sesuaikan seperti yang saya jelaskan di atas.",
					strings.ToLower(diag.Parameter), diag.Value, diag.OptimalRange)
			}
		}
		answer += imageFooter(ragResult.NumImages)
		return rag.StripMarkdown(answer)

	default:
		return "Maaf, saya tidak dapat memproses pertanyaan Anda. Bisa tolong diulang dengan lebih spesifik?"
	}
}

// imageFooter is the non-intrusive diagram hint appended to answers.
func imageFooter(numImages int) string {
	if numImages <= 0 {
		return ""
	}
	return fmt.Sprintf("\n\nAda %d diagram yang bisa membantu visualisasi", numImages)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
