package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run describes one simulation run.
type Run struct {
	ID        string
	Scenario  string
	StartTime float64
	StopTime  float64
	StepSize  float64
	Status    string
	Steps     int64
	Error     string
	CreatedAt time.Time
}

// Sample is one recorded value.
type Sample struct {
	Step     int64
	Time     float64
	Instance string
	Variable string
	Value    fmi2.Value
}

// Message is one log message drained from an instance.
type Message struct {
	Seq      int64
	Step     int64
	Instance string
	fmilog.Message
}

// CreateRun inserts a new run in status running and returns it with its
// generated ID.
func (s *Store) CreateRun(ctx context.Context, scenario string, startTime, stopTime, stepSize float64) (Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	run := Run{
		ID:        id.String(),
		Scenario:  scenario,
		StartTime: startTime,
		StopTime:  stopTime,
		StepSize:  stepSize,
		Status:    RunRunning,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, start_time, stop_time, step_size, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Scenario,
		run.StartTime,
		run.StopTime,
		run.StepSize,
		run.Status,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// FinishRun records the final status of a run. A non-nil runErr marks the
// run failed.
func (s *Store) FinishRun(ctx context.Context, runID string, steps int64, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, steps = ?, error = ? WHERE id = ?
	`, status, steps, msg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// WriteSamples inserts samples in one transaction. Writing the same
// (instance, variable, step) twice is an error.
func (s *Store) WriteSamples(ctx context.Context, runID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write samples: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, step, time, instance, variable, data_type, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write samples: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sm := range samples {
		dataType, text, err := marshalValue(sm.Value)
		if err != nil {
			return fmt.Errorf("write samples: %s.%s: %w", sm.Instance, sm.Variable, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, sm.Step, sm.Time, sm.Instance, sm.Variable, dataType, text); err != nil {
			return fmt.Errorf("write samples: %s.%s step %d: %w", sm.Instance, sm.Variable, sm.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write samples: commit: %w", err)
	}
	return nil
}

// WriteMessages appends messages after the last one stored for the run
// and returns them with their assigned sequence numbers.
func (s *Store) WriteMessages(ctx context.Context, runID string, step int64, instance string, msgs []fmilog.Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write messages: begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM messages WHERE run_id = ?
	`, runID).Scan(&next); err != nil {
		return nil, fmt.Errorf("write messages: next seq: %w", err)
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		next++
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (run_id, seq, step, instance, status, category, text)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, next, step, instance, m.Status.String(), m.Category, m.Text); err != nil {
			return nil, fmt.Errorf("write messages: %w", err)
		}
		out = append(out, Message{Seq: next, Step: step, Instance: instance, Message: m})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write messages: commit: %w", err)
	}
	return out, nil
}
