package anomaly

import (
	"errors"
	"testing"

	"github.com/insightdelivered/statement-insights/internal/models"
)

func amounts(vals ...float64) []models.Transaction {
	var out []models.Transaction
	for _, v := range vals {
		out = append(out, tx(nil, "p", v, "Other"))
	}
	return out
}

func TestDetect_ZScore(t *testing.T) {
	txns := amounts(10, 10, 10, 10, 100, 10, 10, 10, 10, 10)

	got, err := Detect(txns, MethodZScore, 2.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d anomalies, want 1", len(got))
	}
	if got[0].Amount != 100 || got[0].ZScore != 3 {
		t.Errorf("got amount %v z %v, want 100 and 3", got[0].Amount, got[0].ZScore)
	}
	if got[0].Reason != "Unusually high amount (Z-score > 2.5)" {
		t.Errorf("reason = %q", got[0].Reason)
	}

	// z of exactly 3 is not above the default threshold.
	got, err = Detect(txns, MethodZScore, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d anomalies at default threshold, want 0", len(got))
	}
}

func TestDetect_ZScoreConstant(t *testing.T) {
	got, err := Detect(amounts(5, 5, 5), MethodZScore, 1)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v; want no anomalies", got, err)
	}
}

func TestDetect_IQR(t *testing.T) {
	got, err := Detect(amounts(1, 2, 3, 4, 100, -50), MethodIQR, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d anomalies, want 2", len(got))
	}
	if got[0].Amount != 100 || got[0].Reason != "Unusually high" {
		t.Errorf("first = %v %q", got[0].Amount, got[0].Reason)
	}
	if got[1].Amount != -50 || got[1].Reason != "Unusually low" {
		t.Errorf("second = %v %q", got[1].Amount, got[1].Reason)
	}
}

func TestDetect_Isolation(t *testing.T) {
	var vals []float64
	for i := 0; i < 20; i++ {
		vals = append(vals, float64(10+i))
	}
	vals = append(vals, 500)

	got, err := Detect(amounts(vals...), MethodIsolation, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("got %d anomalies, want 1 or 2", len(got))
	}
	if got[0].Amount != 500 || got[0].Reason != "Detected by Isolation Forest" {
		t.Errorf("first = %v %q", got[0].Amount, got[0].Reason)
	}
}

func TestDetect_UnknownMethod(t *testing.T) {
	if _, err := Detect(amounts(1), Method("lof"), 0); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    Method
		wantErr bool
	}{
		{"zscore", MethodZScore, false},
		{" IQR ", MethodIQR, false},
		{"isolation", MethodIsolation, false},
		{"dbscan", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMethod) {
					t.Errorf("expected ErrUnknownMethod, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatThreshold(t *testing.T) {
	tests := map[float64]string{3: "3.0", 2.5: "2.5", 2.75: "2.75"}
	for in, want := range tests {
		if got := formatThreshold(in); got != want {
			t.Errorf("formatThreshold(%v) = %q, want %q", in, got, want)
		}
	}
}
