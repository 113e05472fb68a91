package fare

import "testing"

func TestTotal(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		perKm      float64
		want       float64
	}{
		{"standard route", 100, 10, 1020},
		{"short route", 12.5, 10, 145},
		{"zero distance", 0, 10, 20},
		{"higher rate", 250, 12, 3020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Total(tt.distanceKm, tt.perKm); got != tt.want {
				t.Errorf("Total(%v, %v) = %v, want %v", tt.distanceKm, tt.perKm, got, tt.want)
			}
		})
	}
}

func TestTotal_Stable(t *testing.T) {
	// The calculator is pure: repeated calls with identical inputs must
	// return a bit-identical result.
	first := Total(100, 10)
	if first != 1020 {
		t.Fatalf("Total(100, 10) = %v, want 1020", first)
	}
	for i := 0; i < 1000; i++ {
		if got := Total(100, 10); got != first {
			t.Fatalf("call %d drifted: got %v, want %v", i, got, first)
		}
	}
}

func TestCompute_DefaultRate(t *testing.T) {
	b := Compute(100, 0)

	if b.PerKm != DefaultPerKm {
		t.Errorf("expected fallback rate %d, got %v", DefaultPerKm, b.PerKm)
	}
	if b.Total != 1020 {
		t.Errorf("expected total 1020 with default rate, got %v", b.Total)
	}
}

func TestCompute_Breakdown(t *testing.T) {
	b := Compute(80, 15)

	if b.Base != 1200 {
		t.Errorf("base = %v, want 1200", b.Base)
	}
	if b.ServiceCharge != 20 {
		t.Errorf("service charge = %v, want 20", b.ServiceCharge)
	}
	if b.Total != b.Base+b.ServiceCharge {
		t.Errorf("total %v does not equal base %v + service charge %v", b.Total, b.Base, b.ServiceCharge)
	}
}
