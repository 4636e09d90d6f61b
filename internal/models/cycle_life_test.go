package models

import (
	"strings"
	"testing"
)

func TestFirstBelow(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		threshold float64
		want      int
	}{
		{"first strict crossing wins", []float64{100, 95, 90, 79, 79, 80}, 80, 3},
		{"equal to threshold is not a crossing", []float64{100, 80, 80, 79.999}, 80, 3},
		{"never crosses", []float64{1.0, 0.99, 0.95}, 0.8, -1},
		{"crosses at the first cycle", []float64{0.5, 0.9}, 0.8, 0},
		{"empty series", nil, 0.8, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstBelow(tt.values, tt.threshold); got != tt.want {
				t.Errorf("FirstBelow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCycleLifePrediction_EndOfLife(t *testing.T) {
	p := &CycleLifePrediction{
		CycleIndex:          []int{1, 2, 3, 4, 5, 6},
		Capacity:            []float64{100, 95, 90, 79, 79, 80},
		CoulombicEfficiency: []float64{99.9, 99.9, 99.9, 99.9, 99.9, 99.9},
		InitialCapacity:     100,
	}

	eol := p.EndOfLife(DefaultEOLFraction)
	if !eol.Reached {
		t.Fatal("expected EOL to be reached")
	}
	if eol.Threshold != 80 {
		t.Errorf("Threshold = %v, want 80", eol.Threshold)
	}
	if eol.Index != 3 {
		t.Errorf("Index = %v, want 3", eol.Index)
	}
	if eol.Cycle != 4 {
		t.Errorf("Cycle = %v, want 4", eol.Cycle)
	}
	if !strings.Contains(eol.Message(p.Len()), "cycle 4") {
		t.Errorf("Message() = %q", eol.Message(p.Len()))
	}

	p.Capacity = []float64{100, 99, 98, 97, 96, 95}
	eol = p.EndOfLife(DefaultEOLFraction)
	if eol.Reached {
		t.Errorf("EOL reached at %d, want not reached", eol.Cycle)
	}
	if eol.Index != -1 {
		t.Errorf("Index = %v, want -1", eol.Index)
	}
	if !strings.Contains(eol.Message(6), "no EOL reached") {
		t.Errorf("Message() = %q", eol.Message(6))
	}
}

func TestLookupProfile(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantDecay float64
		wantErr   bool
	}{
		{"excellent", "excellent", 1.0, false},
		{"Perfectly-Stable", "excellent", 1.0, false},
		{"B", "normal", 2.5, false},
		{" stable ", "normal", 2.5, false},
		{"unstable", "poor", 5.0, false},
		{"c", "poor", 5.0, false},
		{"legendary", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := LookupProfile(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupProfile(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Name != tt.wantName || p.DecayRate != tt.wantDecay {
				t.Errorf("LookupProfile(%q) = %s/%v, want %s/%v", tt.in, p.Name, p.DecayRate, tt.wantName, tt.wantDecay)
			}
		})
	}
}
