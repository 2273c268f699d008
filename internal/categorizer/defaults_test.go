package categorizer

import (
	"testing"

	"github.com/insightdelivered/statement-insights/internal/models"
)

func TestDefaultConfig_Order(t *testing.T) {
	names := DefaultConfig().Names()
	if len(names) != 16 {
		t.Fatalf("got %d categories, want 16", len(names))
	}
	if names[0] != "Food & Dining" || names[len(names)-1] != "Pet Care" {
		t.Errorf("unexpected order: %v", names)
	}
}

func TestDefaultConfig_Fresh(t *testing.T) {
	a := DefaultConfig()
	a[0].Keywords[0] = "changed"
	if DefaultConfig()[0].Keywords[0] == "changed" {
		t.Error("DefaultConfig must return a fresh copy")
	}
}

func TestConfig_Merge(t *testing.T) {
	base := Config{
		{Name: "A", Keywords: []string{"a"}},
		{Name: "B", Keywords: []string{"b"}},
	}
	merged := base.Merge([]models.Category{
		{Name: "C", Keywords: []string{"c"}},
		{Name: "A", Keywords: []string{"x", "y"}},
	})

	want := []string{"A", "B", "C"}
	got := merged.Names()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("merged order = %v, want %v", got, want)
		}
	}
	if len(merged[0].Keywords) != 2 || merged[0].Keywords[0] != "x" {
		t.Errorf("override not applied: %v", merged[0].Keywords)
	}
	if base[0].Keywords[0] != "a" {
		t.Error("Merge must not modify the receiver")
	}
}
