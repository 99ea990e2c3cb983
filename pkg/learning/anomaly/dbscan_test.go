package anomaly

import "testing"

func TestRunSeparatesTwoDenseClustersAndNoise(t *testing.T) {
	features := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, // cluster A
		{10, 10}, {10.1, 10}, {10, 10.1}, // cluster B
		{50, 50}, // noise
	}
	labels := Run(DBSCANConfig{Eps: 1.0, MinSamples: 2}, features)

	if labels[6] != Noise {
		t.Fatalf("expected the outlier to be labeled noise, got %v", labels[6])
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Fatalf("expected cluster A points to share a label, got %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Fatalf("expected cluster B points to share a label, got %v", labels[3:6])
	}
	if labels[0] == labels[3] {
		t.Fatal("expected cluster A and cluster B to receive different labels")
	}
}

func TestAdaptiveEpsIsClampedToBounds(t *testing.T) {
	tight := [][]float64{{0, 0}, {0.01, 0}, {0, 0.01}, {0.01, 0.01}}
	eps := AdaptiveEps(tight, 3)
	if eps < 0.1 || eps > 2.0 {
		t.Fatalf("expected eps within [0.1, 2.0], got %f", eps)
	}
}

func TestBuildReportsRecordsDistanceToNearestCluster(t *testing.T) {
	features := [][]float64{{0, 0}, {0.1, 0}, {5, 5}}
	labels := []Label{0, 0, Noise}

	reports := BuildReports(features, labels)
	if len(reports) != 1 {
		t.Fatalf("expected exactly one noise report, got %d", len(reports))
	}
	if reports[0].Index != 2 {
		t.Fatalf("expected the noise report to point at index 2, got %d", reports[0].Index)
	}
	if reports[0].DistanceToNearest <= 0 {
		t.Fatalf("expected a positive distance to the nearest cluster, got %f", reports[0].DistanceToNearest)
	}
}
