package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
)

func TestCreateRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, s, "adder")
	if run.ID == "" {
		t.Fatal("run ID is empty")
	}
	if run.Status != RunRunning {
		t.Errorf("status = %q, want %q", run.Status, RunRunning)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	got.CreatedAt = run.CreatedAt
	if got != run {
		t.Errorf("GetRun() = %+v, want %+v", got, run)
	}
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ok := createTestRun(t, s, "ok")
	bad := createTestRun(t, s, "bad")

	if err := s.FinishRun(ctx, ok.ID, 3, nil); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}
	if err := s.FinishRun(ctx, bad.ID, 1, errors.New("instance a: do step returned error")); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	got, _ := s.GetRun(ctx, ok.ID)
	if got.Status != RunCompleted || got.Steps != 3 || got.Error != "" {
		t.Errorf("completed run = %+v", got)
	}
	got, _ = s.GetRun(ctx, bad.ID)
	if got.Status != RunFailed || got.Error != "instance a: do step returned error" {
		t.Errorf("failed run = %+v", got)
	}

	err := s.FinishRun(ctx, "no-such-run", 0, nil)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun(unknown) = %v, want ErrRunNotFound", err)
	}
}

func TestWriteSamples_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "types")

	in := []Sample{
		{Step: 0, Time: 0, Instance: "a", Variable: "r", Value: fmi2.RealValue(0.1)},
		{Step: 0, Time: 0, Instance: "a", Variable: "i", Value: fmi2.IntegerValue(-7)},
		{Step: 0, Time: 0, Instance: "a", Variable: "b", Value: fmi2.BooleanValue(true)},
		{Step: 0, Time: 0, Instance: "a", Variable: "s", Value: fmi2.StringValue("héllo, world")},
		{Step: 1, Time: 0.5, Instance: "a", Variable: "r", Value: fmi2.RealValue(math.Inf(-1))},
	}
	if err := s.WriteSamples(ctx, run.ID, in); err != nil {
		t.Fatalf("WriteSamples() failed: %v", err)
	}

	out, err := s.Samples(ctx, run.ID, "", "")
	if err != nil {
		t.Fatalf("Samples() failed: %v", err)
	}
	// ordered by step, then variable name
	want := []Sample{in[2], in[1], in[0], in[3], in[4]}
	if len(out) != len(want) {
		t.Fatalf("got %d samples, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d = %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestWriteSamples_DuplicateIsRejectedAtomically(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "dup")

	batch := []Sample{
		{Step: 0, Instance: "a", Variable: "x", Value: fmi2.RealValue(1)},
		{Step: 0, Instance: "a", Variable: "x", Value: fmi2.RealValue(2)},
	}
	if err := s.WriteSamples(ctx, run.ID, batch); err == nil {
		t.Fatal("expected duplicate sample to fail")
	}
	out, _ := s.Samples(ctx, run.ID, "", "")
	if len(out) != 0 {
		t.Errorf("got %d samples after failed batch, want 0", len(out))
	}
}

func TestWriteSamples_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteSamples(context.Background(), "missing", []Sample{{Instance: "a", Variable: "x", Value: fmi2.RealValue(1)}})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestWriteMessages(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "log")

	first, err := s.WriteMessages(ctx, run.ID, 0, "a", []fmilog.Message{
		{Status: fmi2.OK, Category: "logEvents", Text: "started"},
		{Status: fmi2.Warning, Category: "fmi2slave", Text: "clamped"},
	})
	if err != nil {
		t.Fatalf("WriteMessages() failed: %v", err)
	}
	second, err := s.WriteMessages(ctx, run.ID, 1, "b", []fmilog.Message{
		{Status: fmi2.Error, Category: "logStatusError", Text: "diverged"},
	})
	if err != nil {
		t.Fatalf("WriteMessages() failed: %v", err)
	}
	if first[0].Seq != 1 || first[1].Seq != 2 || second[0].Seq != 3 {
		t.Errorf("sequence numbers = %d %d %d, want 1 2 3", first[0].Seq, first[1].Seq, second[0].Seq)
	}

	msgs, err := s.Messages(ctx, run.ID)
	if err != nil {
		t.Fatalf("Messages() failed: %v", err)
	}
	want := append(first, second...)
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, msgs[i], want[i])
		}
	}

	none, err := s.WriteMessages(ctx, run.ID, 2, "a", nil)
	if err != nil || none != nil {
		t.Errorf("WriteMessages(nil) = %v, %v", none, err)
	}
}
