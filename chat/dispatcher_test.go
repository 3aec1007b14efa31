package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/canopya/canopya/rag"
)

type fakeAnswerer struct {
	result    *rag.Result
	err       error
	calls     int
	lastQuery string
}

func (f *fakeAnswerer) Query(ctx context.Context, query string, history []rag.Message, userID string) (*rag.Result, error) {
	f.calls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeActuator struct {
	lastAction ActionType
	outcome    string
	err        error
}

func (f *fakeActuator) Execute(ctx context.Context, action ActionType) (string, error) {
	f.lastAction = action
	if f.err != nil {
		return "", f.err
	}
	return f.outcome, nil
}

func TestDispatcher_GreetingSkipsEngine(t *testing.T) {
	engine := &fakeAnswerer{}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "halo"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent != IntentGreeting {
		t.Errorf("Intent = %v, want greeting", resp.Intent)
	}
	if engine.calls != 0 {
		t.Errorf("engine calls = %d, want 0 for greeting", engine.calls)
	}
	if resp.Answer == "" {
		t.Error("Answer empty, want canned greeting")
	}
}

func TestDispatcher_RAGAppendsSourcesFooter(t *testing.T) {
	engine := &fakeAnswerer{result: &rag.Result{
		Answer:     "**Hidroponik** lebih hemat air dibanding tanam tanah.",
		Sources:    []string{"Panduan Hidroponik", "Buku NFT", "Artikel Lain"},
		Confidence: 0.82,
		NumSources: 3,
		NumImages:  2,
	}}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "apa kelebihan hidroponik dibanding tanah?"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent != IntentRAG {
		t.Errorf("Intent = %v, want rag", resp.Intent)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
	if strings.Contains(resp.Answer, "**") {
		t.Errorf("Answer = %q, want markdown stripped", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Sumber: Panduan Hidroponik, Buku NFT") {
		t.Errorf("Answer = %q, want top-2 sources footer", resp.Answer)
	}
	if strings.Contains(resp.Answer, "Artikel Lain") {
		t.Errorf("Answer = %q, want footer capped at two sources", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Ada 2 diagram") {
		t.Errorf("Answer = %q, want image hint", resp.Answer)
	}
	if resp.RAGConfidence != 0.82 {
		t.Errorf("RAGConfidence = %v, want 0.82", resp.RAGConfidence)
	}
}

func TestDispatcher_UselessAnswerReplaced(t *testing.T) {
	engine := &fakeAnswerer{result: &rag.Result{
		Answer:  "Dokumen tidak memberikan informasi tentang aeroponik.",
		Sources: []string{"Panduan Hidroponik"},
	}}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "apa itu aeroponik?"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if !strings.Contains(resp.Answer, "tidak menemukan informasi spesifik") {
		t.Errorf("Answer = %q, want generic apology for useless answer", resp.Answer)
	}
	if strings.Contains(resp.Answer, "Sumber:") {
		t.Errorf("Answer = %q, want no sources footer on replaced answer", resp.Answer)
	}
}

func TestDispatcher_FallbackAnswerMarked(t *testing.T) {
	engine := &fakeAnswerer{result: &rag.Result{
		Answer:       "Berdasarkan prinsip umum hidroponik, jaga pH di 5.5-6.5.",
		UsedFallback: true,
	}}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "apa tips merawat aeroponik?"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if !resp.UsedFallback {
		t.Error("UsedFallback = false, want true")
	}
	if !strings.Contains(resp.Answer, "Tips Umum Hidroponik") {
		t.Errorf("Answer = %q, want fallback marker", resp.Answer)
	}
	if strings.Contains(resp.Answer, "Sumber:") {
		t.Errorf("Answer = %q, want no sources footer on fallback", resp.Answer)
	}
}

func TestDispatcher_RuleBasedDiagnosis(t *testing.T) {
	engine := &fakeAnswerer{}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "pH saya 4.0, masih normal kan?"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent != IntentRuleBased {
		t.Fatalf("Intent = %v, want rule_based", resp.Intent)
	}
	if engine.calls != 0 {
		t.Errorf("engine calls = %d, want 0 for rule-based route", engine.calls)
	}
	if !resp.HasSensorData || resp.SensorData == nil || resp.SensorData.PH == nil {
		t.Fatal("sensor data missing from response")
	}
	if !strings.Contains(resp.Answer, "kritis") {
		t.Errorf("Answer = %q, want critical pH diagnosis", resp.Answer)
	}
}

func TestDispatcher_HybridAppendsStatusWarnings(t *testing.T) {
	engine := &fakeAnswerer{result: &rag.Result{
		Answer:     "pH rendah biasanya karena nutrisi terlalu asam.",
		Confidence: 0.8,
	}}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "pH saya 4.0, apakah kondisi tanaman masih aman?"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent != IntentHybrid {
		t.Fatalf("Intent = %v, want hybrid", resp.Intent)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
	if !strings.Contains(resp.Answer, "ph kamu sedang tidak baik-baik saja") {
		t.Errorf("Answer = %q, want sensor warning appended for status query", resp.Answer)
	}
}

func TestDispatcher_HybridMethodQuerySkipsWarnings(t *testing.T) {
	engine := &fakeAnswerer{result: &rag.Result{
		Answer: "Turunkan pH dengan larutan pH down secara bertahap.",
	}}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "pH saya 4.0, bagaimana cara memperbaikinya?"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent != IntentHybrid {
		t.Fatalf("Intent = %v, want hybrid", resp.Intent)
	}
	if strings.Contains(resp.Answer, "tidak baik-baik saja") {
		t.Errorf("Answer = %q, want no sensor warning for method query", resp.Answer)
	}
}

func TestDispatcher_ActionExecuted(t *testing.T) {
	engine := &fakeAnswerer{}
	actuator := &fakeActuator{outcome: "Pompa nutrisi menyala 5 detik."}
	d := NewDispatcher(engine, nil, actuator)

	resp, err := d.Chat(context.Background(), Request{Message: "tolong tambah nutrisi"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent != IntentAction {
		t.Errorf("Intent = %v, want action", resp.Intent)
	}
	if actuator.lastAction != ActionAddNutrient {
		t.Errorf("action = %v, want add_nutrient", actuator.lastAction)
	}
	if engine.calls != 0 {
		t.Errorf("engine calls = %d, want 0 for device command", engine.calls)
	}
	if !strings.Contains(resp.Answer, "Menambah Nutrisi berhasil") {
		t.Errorf("Answer = %q, want success confirmation", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Pompa nutrisi") {
		t.Errorf("Answer = %q, want actuator outcome", resp.Answer)
	}
}

func TestDispatcher_ActionFailureReported(t *testing.T) {
	actuator := &fakeActuator{err: errors.New("pump offline")}
	d := NewDispatcher(&fakeAnswerer{}, nil, actuator)

	resp, err := d.Chat(context.Background(), Request{Message: "turunkan ph sekarang"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if !strings.Contains(resp.Answer, "Gagal melakukan aksi") {
		t.Errorf("Answer = %q, want failure message", resp.Answer)
	}
}

func TestDispatcher_NoActuatorRoutesCommandNormally(t *testing.T) {
	engine := &fakeAnswerer{result: &rag.Result{Answer: "Tambahkan nutrisi A+B sesuai dosis kemasan."}}
	d := NewDispatcher(engine, nil, nil)

	resp, err := d.Chat(context.Background(), Request{Message: "tolong tambah nutrisi dong"})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if resp.Intent == IntentAction {
		t.Errorf("Intent = %v, want non-action route without actuator", resp.Intent)
	}
}

func TestDispatcher_EngineErrorPropagates(t *testing.T) {
	engine := &fakeAnswerer{err: errors.New("backend down")}
	d := NewDispatcher(engine, nil, nil)

	if _, err := d.Chat(context.Background(), Request{Message: "apa itu hidroponik?"}); err == nil {
		t.Fatal("Chat() error = nil, want engine failure propagated")
	}
}
