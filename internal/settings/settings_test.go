package settings

import (
	"testing"
	"time"
)

func TestEnabledDefaultsToTrue(t *testing.T) {
	s := Default()
	if !s.Enabled("Basics") {
		t.Fatal("untouched module should be enabled")
	}
	s.ModuleAvailability["Basics"] = false
	if s.Enabled("Basics") {
		t.Fatal("disabled module reported enabled")
	}
}

func TestNormalize(t *testing.T) {
	s := Settings{
		ModuleTimeLimits: map[string]int{"A": 0, "B": -3, "C": 15, "D": 500, "": 10},
	}
	n := s.Normalize()
	if _, ok := n.ModuleTimeLimits["A"]; ok {
		t.Fatal("zero limit should be dropped")
	}
	if _, ok := n.ModuleTimeLimits["B"]; ok {
		t.Fatal("negative limit should be dropped")
	}
	if _, ok := n.ModuleTimeLimits[""]; ok {
		t.Fatal("blank module should be dropped")
	}
	if n.ModuleTimeLimits["C"] != 15 || n.ModuleTimeLimits["D"] != MaxTimeLimitMinutes {
		t.Fatalf("unexpected limits: %v", n.ModuleTimeLimits)
	}
	if n.ModuleAvailability == nil {
		t.Fatal("nil map should be replaced")
	}
}

func TestTimeLimit(t *testing.T) {
	s := Settings{ModuleTimeLimits: map[string]int{"Tax": 10}}
	if d, ok := s.TimeLimit("Tax"); !ok || d != 10*time.Minute {
		t.Fatalf("got %v %v", d, ok)
	}
	if _, ok := s.TimeLimit("Other"); ok {
		t.Fatal("no limit expected")
	}
}
