package chat

import "testing"

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"halo", true},
		{"Selamat pagi", true},
		{"hai bot", true},
		{"pagi", true},
		{"halo, pH saya 4.5 dan TDS 1500 gimana ya", false},
		{"berapa pH ideal?", false},
	}
	for _, tt := range tests {
		if got := IsGreeting(tt.message); got != tt.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		name          string
		message       string
		hasSensorData bool
		wantIntent    Intent
		wantMinConf   float64
	}{
		{"greeting", "halo", false, IntentGreeting, 1.0},
		{"sensor data with question", "pH saya 4.5, bagaimana cara memperbaikinya?", true, IntentHybrid, 0.9},
		{"sensor data with action word", "pH saya 4.5, harus diapakan", true, IntentHybrid, 0.9},
		{"sensor data only", "pH saya 4.5, masih normal kan?", true, IntentRuleBased, 0.85},
		{"sensor topic knowledge question", "bagaimana cara mengukur pH yang benar?", false, IntentRAG, 0.8},
		{"sensor topic without question word", "range pH ideal selada", false, IntentRAG, 0.75},
		{"knowledge question", "apa kelebihan hidroponik dibanding tanah?", false, IntentRAG, 0.7},
		{"generic fallthrough", "selada saya kok begitu ya", false, IntentRAG, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, confidence := DetectIntent(tt.message, tt.hasSensorData)
			if intent != tt.wantIntent {
				t.Errorf("DetectIntent(%q) intent = %v, want %v", tt.message, intent, tt.wantIntent)
			}
			if confidence < tt.wantMinConf {
				t.Errorf("DetectIntent(%q) confidence = %v, want >= %v", tt.message, confidence, tt.wantMinConf)
			}
		})
	}
}

func TestDetectIntent_KnowledgeConfidenceScalesWithMatches(t *testing.T) {
	_, single := DetectIntent("jelaskan dong", false)
	_, many := DetectIntent("jelaskan perbedaan jenis sistem dan manfaat setup", false)
	if many <= single {
		t.Errorf("confidence should grow with matches: %v vs %v", single, many)
	}
	if many > 0.9 {
		t.Errorf("knowledge confidence = %v, want capped at 0.9", many)
	}
}

func TestDetectAction(t *testing.T) {
	tests := []struct {
		message    string
		wantAction ActionType
		wantOK     bool
	}{
		{"tolong tambah nutrisi", ActionAddNutrient, true},
		{"mau tambah air dong", ActionAddWater, true},
		{"turunkan ph sekarang", ActionPHDown, true},
		{"naikkan ph ya", ActionPHUp, true},
		{"cara menambah nutrisi yang benar", "", false},
		{"bagaimana turunkan ph", "", false},
		{"kapan harus tambah air", "", false},
		{"apa itu hidroponik", "", false},
	}
	for _, tt := range tests {
		action, confidence, ok := DetectAction(tt.message)
		if ok != tt.wantOK {
			t.Errorf("DetectAction(%q) ok = %v, want %v", tt.message, ok, tt.wantOK)
			continue
		}
		if ok && action != tt.wantAction {
			t.Errorf("DetectAction(%q) = %v, want %v", tt.message, action, tt.wantAction)
		}
		if ok && confidence != 0.8 {
			t.Errorf("DetectAction(%q) confidence = %v, want 0.8", tt.message, confidence)
		}
	}
}

func TestIsUselessAnswer(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"", true},
		{"Dokumen tidak memberikan informasi tentang itu.", true},
		{"Maaf, aku tidak punya info spesifik untuk itu", true},
		{"Tidak ada informasi mengenai aeroponik.", true},
		{"pH ideal untuk NFT adalah 5.5 sampai 6.5.", false},
	}
	for _, tt := range tests {
		if got := IsUselessAnswer(tt.answer); got != tt.want {
			t.Errorf("IsUselessAnswer(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestIsUselessAnswer_ChecksOnlyLeadingText(t *testing.T) {
	long := "pH ideal untuk NFT adalah 5.5 sampai 6.5 dan harus dicek dua kali sehari supaya stabil dan tanaman sehat. " +
		"Kalau dokumen tidak menyebutkan angka lain, pakai range itu."
	if IsUselessAnswer(long) {
		t.Error("IsUselessAnswer() = true for pattern past the first 100 chars, want false")
	}
}
