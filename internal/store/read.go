package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fmu/internal/fmi2"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, start_time, stop_time, step_size, status, steps, error, created_at
		FROM runs
		WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns every run, oldest first.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, start_time, stop_time, step_size, status, steps, error, created_at
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, start_time, stop_time, step_size, status, steps, error, created_at
		FROM runs
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var created string
	if err := row.Scan(&run.ID, &run.Scenario, &run.StartTime, &run.StopTime, &run.StepSize,
		&run.Status, &run.Steps, &run.Error, &created); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: created_at: %w", run.ID, err)
	}
	run.CreatedAt = t
	return run, nil
}

// Samples returns the samples of a run ordered by step. An empty variable
// selects every variable; an empty instance selects every instance.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Samples(ctx context.Context, runID, instance, variable string) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, time, instance, variable, data_type, value
		FROM samples
		WHERE run_id = ?
		  AND (? = '' OR instance = ?)
		  AND (? = '' OR variable = ?)
		ORDER BY step ASC, instance COLLATE BINARY ASC, variable COLLATE BINARY ASC
	`, runID, instance, instance, variable, variable)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sm Sample
		var dataType, text string
		if err := rows.Scan(&sm.Step, &sm.Time, &sm.Instance, &sm.Variable, &dataType, &text); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		v, err := unmarshalValue(dataType, text)
		if err != nil {
			return nil, fmt.Errorf("scan sample %s.%s: %w", sm.Instance, sm.Variable, err)
		}
		sm.Value = v
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// Series returns the time and value of one real or integer variable, for
// plotting. Booleans read as 0 and 1.
func (s *Store) Series(ctx context.Context, runID, instance, variable string) (times, values []float64, err error) {
	samples, err := s.Samples(ctx, runID, instance, variable)
	if err != nil {
		return nil, nil, err
	}
	for _, sm := range samples {
		var f float64
		switch v := sm.Value.(type) {
		case fmi2.RealValue:
			f = float64(v)
		case fmi2.IntegerValue:
			f = float64(v)
		case fmi2.BooleanValue:
			if v {
				f = 1
			}
		default:
			return nil, nil, fmt.Errorf("series %s.%s: %s values cannot be plotted", instance, variable, sm.Value.Type())
		}
		times = append(times, sm.Time)
		values = append(values, f)
	}
	return times, values, nil
}

// Recorded lists the distinct instance/variable pairs recorded in a run.
func (s *Store) Recorded(ctx context.Context, runID string) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT instance, variable
		FROM samples
		WHERE run_id = ?
		ORDER BY instance COLLATE BINARY ASC, variable COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query recorded variables: %w", err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, fmt.Errorf("scan recorded variable: %w", err)
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

// Messages returns the messages of a run in the order they were written.
//
// Returns an empty slice (not nil) if the run has none.
func (s *Store) Messages(ctx context.Context, runID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, step, instance, status, category, text
		FROM messages
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		var status string
		if err := rows.Scan(&m.Seq, &m.Step, &m.Instance, &status, &m.Category, &m.Text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		st, err := fmi2.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("scan message %d: %w", m.Seq, err)
		}
		m.Status = st
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
