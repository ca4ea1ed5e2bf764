package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/fmu/internal/fmi2"
)

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() = %v, want ErrRunNotFound", err)
	}
	_, err = s.LatestRun(context.Background())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun() = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_OldestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Fatalf("ListRuns() on empty store = %v, want empty slice", runs)
	}

	a := createTestRun(t, s, "a")
	b := createTestRun(t, s, "b")
	c := createTestRun(t, s, "c")

	runs, err = s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != a.ID || runs[1].ID != b.ID || runs[2].ID != c.ID {
		t.Errorf("ListRuns() order = %v", runs)
	}

	latest, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if latest.ID != c.ID {
		t.Errorf("LatestRun() = %s, want %s", latest.ID, c.ID)
	}
}

func TestSamples_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "filter")

	var batch []Sample
	for step := int64(0); step < 3; step++ {
		tm := float64(step) * 0.5
		batch = append(batch,
			Sample{Step: step, Time: tm, Instance: "sine", Variable: "y", Value: fmi2.RealValue(tm * 2)},
			Sample{Step: step, Time: tm, Instance: "sine", Variable: "n", Value: fmi2.IntegerValue(step)},
			Sample{Step: step, Time: tm, Instance: "gate", Variable: "open", Value: fmi2.BooleanValue(step%2 == 0)},
			Sample{Step: step, Time: tm, Instance: "gate", Variable: "label", Value: fmi2.StringValue("g")},
		)
	}
	if err := s.WriteSamples(ctx, run.ID, batch); err != nil {
		t.Fatalf("WriteSamples() failed: %v", err)
	}

	y, err := s.Samples(ctx, run.ID, "sine", "y")
	if err != nil {
		t.Fatalf("Samples() failed: %v", err)
	}
	if len(y) != 3 {
		t.Fatalf("got %d samples of sine.y, want 3", len(y))
	}

	times, values, err := s.Series(ctx, run.ID, "sine", "y")
	if err != nil {
		t.Fatalf("Series() failed: %v", err)
	}
	wantTimes := []float64{0, 0.5, 1}
	wantValues := []float64{0, 1, 2}
	for i := range wantTimes {
		if times[i] != wantTimes[i] || values[i] != wantValues[i] {
			t.Errorf("point %d = (%v, %v), want (%v, %v)", i, times[i], values[i], wantTimes[i], wantValues[i])
		}
	}

	_, open, err := s.Series(ctx, run.ID, "gate", "open")
	if err != nil {
		t.Fatalf("Series(boolean) failed: %v", err)
	}
	if open[0] != 1 || open[1] != 0 {
		t.Errorf("boolean series = %v, want [1 0 1]", open)
	}

	if _, _, err := s.Series(ctx, run.ID, "gate", "label"); err == nil {
		t.Error("expected string series to fail")
	}

	recorded, err := s.Recorded(ctx, run.ID)
	if err != nil {
		t.Fatalf("Recorded() failed: %v", err)
	}
	want := [][2]string{{"gate", "label"}, {"gate", "open"}, {"sine", "n"}, {"sine", "y"}}
	if len(recorded) != len(want) {
		t.Fatalf("Recorded() = %v, want %v", recorded, want)
	}
	for i := range want {
		if recorded[i] != want[i] {
			t.Errorf("Recorded()[%d] = %v, want %v", i, recorded[i], want[i])
		}
	}
}

func TestUnmarshalValue_Errors(t *testing.T) {
	tests := []struct{ dataType, text string }{
		{"Complex", "1"},
		{"Real", "one"},
		{"Integer", "99999999999"},
		{"Boolean", "maybe"},
	}
	for _, tt := range tests {
		if _, err := unmarshalValue(tt.dataType, tt.text); err == nil {
			t.Errorf("unmarshalValue(%q, %q) succeeded, want error", tt.dataType, tt.text)
		}
	}
}
