package diceroll

import "testing"

func TestRoller_D20_Deterministic(t *testing.T) {
	seed := SeedFrom("stunt", "enc-1", "actor-1", "42")

	a := New(seed)
	b := New(seed)

	for i := 0; i < 20; i++ {
		got, want := a.D20(), b.D20()
		if got != want {
			t.Fatalf("roll %d: got %d, want %d (same seed must reproduce)", i, got, want)
		}
	}
}

func TestRoller_D20_Range(t *testing.T) {
	r := New(7)
	for i := 0; i < 500; i++ {
		v := r.D20()
		if v < 1 || v > 20 {
			t.Fatalf("D20() = %d, out of range [1,20]", v)
		}
	}
}

func TestRoller_RollDice(t *testing.T) {
	tests := []struct {
		name       string
		notation   string
		wantRolls  int
		wantErr    bool
	}{
		{"simple", "3d6", 3, false},
		{"with positive modifier", "1d8+2", 1, false},
		{"with negative modifier", "2d4-1", 2, false},
		{"missing d", "36", 0, true},
		{"bad count", "xd6", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(1)
			total, rolls, err := r.RollDice(tt.notation)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RollDice(%q) error = %v, wantErr %v", tt.notation, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(rolls) != tt.wantRolls {
				t.Errorf("RollDice(%q) rolls = %d, want %d", tt.notation, len(rolls), tt.wantRolls)
			}
			if total <= 0 && tt.wantRolls > 0 {
				t.Errorf("RollDice(%q) total = %d, want > 0", tt.notation, total)
			}
		})
	}
}

func TestSeedFrom_Stable(t *testing.T) {
	a := SeedFrom("combat", "hero", "goblin", "1000")
	b := SeedFrom("combat", "hero", "goblin", "1000")
	if a != b {
		t.Fatalf("SeedFrom should be pure: got %d and %d for identical input", a, b)
	}
}
