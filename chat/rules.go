package chat

import (
	"fmt"
	"strings"
)

// Severity of a diagnostic finding.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Diagnostic is one parameter's threshold evaluation.
type Diagnostic struct {
	Severity     Severity `json:"severity"`
	Parameter    string   `json:"parameter"`
	Value        float64  `json:"value"`
	Issue        string   `json:"issue"`
	Action       string   `json:"action"`
	OptimalRange string   `json:"optimal_range"`
}

// Report is a complete diagnosis over all provided sensor values.
type Report struct {
	OverallSeverity Severity     `json:"overall_severity"`
	Diagnostics     []Diagnostic `json:"diagnostics"`
	Summary         string       `json:"summary"`
}

// band is a min/max threshold pair.
type band struct{ min, max float64 }

// tdsBands are growth-stage specific; leafy vegetables need far less
// nutrient concentration as seedlings than when fruiting.
var tdsBands = map[GrowthStage]struct{ optimal, warning, critical band }{
	StageSeedling:   {band{500, 1000}, band{400, 1200}, band{300, 1500}},
	StageVegetative: {band{800, 1200}, band{600, 1400}, band{500, 1600}},
	StageFruiting:   {band{1000, 1500}, band{800, 1700}, band{700, 2000}},
}

// RuleEngine diagnoses NFT hydroponic sensor readings against validated
// thresholds.
type RuleEngine struct{}

// NewRuleEngine creates a rule-based diagnostics engine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// DiagnosePH evaluates pH against the 5.5-6.5 optimal band.
func (e *RuleEngine) DiagnosePH(ph float64) Diagnostic {
	switch {
	case ph < 4.5 || ph > 7.5:
		return Diagnostic{
			Severity:     SeverityCritical,
			Parameter:    "pH",
			Value:        ph,
			Issue:        fmt.Sprintf("pH CRITICAL: %.1f (sangat di luar range optimal)", ph),
			Action:       "SEGERA sesuaikan pH! Tambahkan pH UP/DOWN solution secara bertahap. Target: 5.5-6.5",
			OptimalRange: "5.5-6.5",
		}
	case ph < 5.0 || ph > 7.0:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "pH",
			Value:        ph,
			Issue:        fmt.Sprintf("pH Warning: %.1f (mendekati batas tidak optimal)", ph),
			Action:       "Sesuaikan pH ke range 5.5-6.5. Monitor setiap hari.",
			OptimalRange: "5.5-6.5",
		}
	case ph >= 5.5 && ph <= 6.5:
		return Diagnostic{
			Severity:     SeverityNormal,
			Parameter:    "pH",
			Value:        ph,
			Issue:        fmt.Sprintf("pH Normal: %.1f", ph),
			Action:       "Pertahankan level ini. Monitor rutin 2-3 hari sekali.",
			OptimalRange: "5.5-6.5",
		}
	default:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "pH",
			Value:        ph,
			Issue:        fmt.Sprintf("pH: %.1f (di ujung range optimal)", ph),
			Action:       "Monitor lebih ketat dan bersiap untuk adjustment.",
			OptimalRange: "5.5-6.5",
		}
	}
}

// DiagnoseTDS evaluates nutrient concentration for the growth stage.
func (e *RuleEngine) DiagnoseTDS(tds float64, stage GrowthStage) Diagnostic {
	bands, ok := tdsBands[stage]
	if !ok {
		bands = tdsBands[StageVegetative]
	}
	optimal := fmt.Sprintf("%.0f-%.0f ppm", bands.optimal.min, bands.optimal.max)

	switch {
	case tds < bands.critical.min:
		return Diagnostic{
			Severity:     SeverityCritical,
			Parameter:    "TDS",
			Value:        tds,
			Issue:        fmt.Sprintf("TDS CRITICAL rendah: %.0f ppm (target: %s untuk %s)", tds, optimal, stage),
			Action:       fmt.Sprintf("SEGERA tambahkan nutrisi! Target: %s. Tambahkan nutrisi A+B sesuai dosis.", optimal),
			OptimalRange: optimal,
		}
	case tds > bands.critical.max:
		return Diagnostic{
			Severity:     SeverityCritical,
			Parameter:    "TDS",
			Value:        tds,
			Issue:        fmt.Sprintf("TDS CRITICAL tinggi: %.0f ppm (target: %s untuk %s)", tds, optimal, stage),
			Action:       fmt.Sprintf("SEGERA encerkan! Tambahkan air bersih bertahap. Risiko: nutrient burn. Target: %s.", optimal),
			OptimalRange: optimal,
		}
	case tds < bands.warning.min:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "TDS",
			Value:        tds,
			Issue:        fmt.Sprintf("TDS Warning rendah: %.0f ppm (target: %s)", tds, optimal),
			Action:       fmt.Sprintf("Tambahkan nutrisi secara bertahap hingga %s. Monitor harian.", optimal),
			OptimalRange: optimal,
		}
	case tds > bands.warning.max:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "TDS",
			Value:        tds,
			Issue:        fmt.Sprintf("TDS Warning tinggi: %.0f ppm (target: %s)", tds, optimal),
			Action:       fmt.Sprintf("Encerkan dengan air bersih hingga %s. Monitor harian.", optimal),
			OptimalRange: optimal,
		}
	case tds >= bands.optimal.min && tds <= bands.optimal.max:
		return Diagnostic{
			Severity:     SeverityNormal,
			Parameter:    "TDS",
			Value:        tds,
			Issue:        fmt.Sprintf("TDS Normal: %.0f ppm (optimal untuk %s)", tds, stage),
			Action:       "Pertahankan level ini. Monitor rutin.",
			OptimalRange: optimal,
		}
	default:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "TDS",
			Value:        tds,
			Issue:        fmt.Sprintf("TDS: %.0f ppm (di ujung range optimal)", tds),
			Action:       "Monitor lebih ketat.",
			OptimalRange: optimal,
		}
	}
}

// DiagnoseTemperature evaluates water temperature against 18-24C.
func (e *RuleEngine) DiagnoseTemperature(temp float64) Diagnostic {
	switch {
	case temp < 14 || temp > 30:
		return Diagnostic{
			Severity:     SeverityCritical,
			Parameter:    "Temperature",
			Value:        temp,
			Issue:        fmt.Sprintf("Suhu CRITICAL: %.1f°C (target: 18-24°C)", temp),
			Action:       "SEGERA sesuaikan suhu! Gunakan heater (jika <14°C) atau chiller/fan (jika >30°C). Suhu ekstrem dapat merusak tanaman.",
			OptimalRange: "18-24°C",
		}
	case temp < 16 || temp > 26:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "Temperature",
			Value:        temp,
			Issue:        fmt.Sprintf("Suhu Warning: %.1f°C (target: 18-24°C)", temp),
			Action:       "Sesuaikan suhu ruangan/greenhouse. Pastikan ventilasi baik.",
			OptimalRange: "18-24°C",
		}
	case temp >= 18 && temp <= 24:
		return Diagnostic{
			Severity:     SeverityNormal,
			Parameter:    "Temperature",
			Value:        temp,
			Issue:        fmt.Sprintf("Suhu Normal: %.1f°C", temp),
			Action:       "Pertahankan suhu ini. Ideal untuk pertumbuhan.",
			OptimalRange: "18-24°C",
		}
	default:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "Temperature",
			Value:        temp,
			Issue:        fmt.Sprintf("Suhu: %.1f°C (acceptable tapi tidak optimal)", temp),
			Action:       "Monitor suhu lebih ketat.",
			OptimalRange: "18-24°C",
		}
	}
}

// DiagnoseHumidity evaluates relative humidity against 50-70%.
func (e *RuleEngine) DiagnoseHumidity(humidity float64) Diagnostic {
	switch {
	case humidity < 30 || humidity > 90:
		return Diagnostic{
			Severity:     SeverityCritical,
			Parameter:    "Humidity",
			Value:        humidity,
			Issue:        fmt.Sprintf("Kelembapan CRITICAL: %.0f%% (target: 50-70%%)", humidity),
			Action:       "SEGERA sesuaikan kelembapan! Gunakan humidifier (jika <30%) atau dehumidifier/ventilasi (jika >90%).",
			OptimalRange: "50-70%",
		}
	case humidity < 40 || humidity > 80:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "Humidity",
			Value:        humidity,
			Issue:        fmt.Sprintf("Kelembapan Warning: %.0f%% (target: 50-70%%)", humidity),
			Action:       "Sesuaikan kelembapan dengan ventilasi/humidifier sesuai kebutuhan.",
			OptimalRange: "50-70%",
		}
	case humidity >= 50 && humidity <= 70:
		return Diagnostic{
			Severity:     SeverityNormal,
			Parameter:    "Humidity",
			Value:        humidity,
			Issue:        fmt.Sprintf("Kelembapan Normal: %.0f%%", humidity),
			Action:       "Pertahankan level ini.",
			OptimalRange: "50-70%",
		}
	default:
		return Diagnostic{
			Severity:     SeverityWarning,
			Parameter:    "Humidity",
			Value:        humidity,
			Issue:        fmt.Sprintf("Kelembapan: %.0f%% (acceptable)", humidity),
			Action:       "Monitor kelembapan.",
			OptimalRange: "50-70%",
		}
	}
}

// DiagnoseAll evaluates every provided sensor value and summarizes.
func (e *RuleEngine) DiagnoseAll(reading *SensorReading) *Report {
	var diagnostics []Diagnostic
	if reading.PH != nil {
		diagnostics = append(diagnostics, e.DiagnosePH(*reading.PH))
	}
	if reading.TDS != nil {
		diagnostics = append(diagnostics, e.DiagnoseTDS(*reading.TDS, reading.GrowthStage))
	}
	if reading.Temperature != nil {
		diagnostics = append(diagnostics, e.DiagnoseTemperature(*reading.Temperature))
	}
	if reading.Humidity != nil {
		diagnostics = append(diagnostics, e.DiagnoseHumidity(*reading.Humidity))
	}

	overall := SeverityNormal
	for _, d := range diagnostics {
		if d.Severity == SeverityCritical {
			overall = SeverityCritical
			break
		}
		if d.Severity == SeverityWarning {
			overall = SeverityWarning
		}
	}

	return &Report{
		OverallSeverity: overall,
		Diagnostics:     diagnostics,
		Summary:         summarize(overall, diagnostics),
	}
}

// summarize builds a conversational one-liner from the worst findings.
func summarize(overall Severity, diagnostics []Diagnostic) string {
	params := func(severity Severity) string {
		var names []string
		for _, d := range diagnostics {
			if d.Severity == severity {
				names = append(names, d.Parameter)
			}
		}
		if len(names) <= 2 {
			return strings.Join(names, " dan ")
		}
		return strings.Join(names[:len(names)-1], ", ") + ", dan " + names[len(names)-1]
	}

	switch overall {
	case SeverityCritical:
		return fmt.Sprintf("Wah, ada masalah serius nih! %s kamu berada di level kritis. Ini perlu ditangani segera ya, kalau dibiarkan bisa merusak tanaman.", params(SeverityCritical))
	case SeverityWarning:
		return fmt.Sprintf("Ada beberapa parameter yang perlu diperhatikan: %s.", params(SeverityWarning))
	default:
		return "Bagus! Semua parameter dalam kondisi optimal. Sistem kamu berjalan dengan baik, tinggal monitor rutin aja."
	}
}
