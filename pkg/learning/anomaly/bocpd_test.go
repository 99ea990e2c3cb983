package anomaly

import "testing"

func TestBOCPDFlagsAMeanShift(t *testing.T) {
	cfg := DefaultBOCPDConfig()
	cfg.HazardRate = 50
	cfg.AlertThreshold = 0.3
	b := NewBOCPD(cfg)

	var lastAlert *Alert
	for i := 0; i < 20; i++ {
		if a := b.Observe(i, 1.0); a != nil {
			lastAlert = a
		}
	}
	for i := 20; i < 40; i++ {
		if a := b.Observe(i, 50.0); a != nil {
			lastAlert = a
		}
	}

	if lastAlert == nil {
		t.Fatal("expected a change point alert after the series jumps from 1.0 to 50.0")
	}
	if lastAlert.Index < 20 {
		t.Fatalf("expected the alert to fire at or after the shift, got index %d", lastAlert.Index)
	}
}

func TestBOCPDStableSeriesStaysQuiet(t *testing.T) {
	cfg := DefaultBOCPDConfig()
	b := NewBOCPD(cfg)

	alerts := 0
	for i := 0; i < 50; i++ {
		if a := b.Observe(i, 5.0); a != nil {
			alerts++
		}
	}

	if alerts > 1 {
		t.Fatalf("expected a constant series to raise at most one spurious alert, got %d", alerts)
	}
}

func TestRunLengthDistributionSumsToOne(t *testing.T) {
	b := NewBOCPD(DefaultBOCPDConfig())
	b.Observe(0, 1.0)
	b.Observe(1, 1.1)

	total := 0.0
	for _, p := range b.RunLengthDistribution() {
		total += p
	}
	if diff := total - 1.0; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected the run-length posterior to sum to 1, got %f", total)
	}
}
