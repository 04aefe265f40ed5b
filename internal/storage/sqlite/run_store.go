package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scenario.report/internal/oracle"
)

// ErrRunNotFound is returned for lookups of unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted analysis of a scenario record.
type Run struct {
	RunID       string   `json:"run_id"`
	Scenario    string   `json:"scenario"`
	MapPath     string   `json:"map_path"`
	VehiclePath string   `json:"vehicle_path"`
	Oracles     []string `json:"oracles"`
	Dispatched  int      `json:"dispatched"`
	Aborted     bool     `json:"aborted"`
	AbortedBy   string   `json:"aborted_by,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
	CreatedAt   int64    `json:"created_at"`

	// Filled by List and Get.
	Violations int `json:"violations"`
	Triggered  int `json:"triggered"`
}

// RunStore persists runs together with their violations.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by db.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// NewRun describes an analysis result ready for Insert.
func NewRun(scenario, mapPath, vehiclePath string, oracles []string, res *oracle.Result, took time.Duration) *Run {
	run := &Run{
		Scenario:    scenario,
		MapPath:     mapPath,
		VehiclePath: vehiclePath,
		Oracles:     append([]string(nil), oracles...),
		DurationMs:  took.Milliseconds(),
	}
	if res != nil {
		run.Dispatched = res.Dispatched
		run.Aborted = res.Aborted
		run.AbortedBy = res.AbortedBy
	}
	return run
}

// Insert stores run and its violations in one transaction. Missing ids and
// creation times are filled in.
func (s *RunStore) Insert(run *Run, violations []oracle.Violation) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	bodies := make([][]byte, len(violations))
	for i, v := range violations {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode violation %d: %w", i, err)
		}
		bodies[i] = b
	}

	var abortedBy any
	if run.AbortedBy != "" {
		abortedBy = run.AbortedBy
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO oracle_runs (
				run_id, scenario, map_path, vehicle_path, oracles,
				dispatched, aborted, aborted_by, duration_ms, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Scenario, run.MapPath, run.VehiclePath, strings.Join(run.Oracles, ","),
			run.Dispatched, run.Aborted, abortedBy, run.DurationMs, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for i, v := range violations {
			_, err := tx.Exec(`
				INSERT INTO oracle_violations (run_id, seq, oracle, triggered, body)
				VALUES (?, ?, ?, ?, ?)`,
				run.RunID, i, v.Name(), v.Triggered(), string(bodies[i]),
			)
			if err != nil {
				return fmt.Errorf("insert violation %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `
	r.run_id, r.scenario, r.map_path, r.vehicle_path, r.oracles,
	r.dispatched, r.aborted, r.aborted_by, r.duration_ms, r.created_at,
	COUNT(v.seq), COALESCE(SUM(v.triggered), 0)`

// List returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *RunStore) List(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + `
		FROM oracle_runs r
		LEFT JOIN oracle_violations v ON v.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.created_at DESC, r.run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a single run by id.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+`
		FROM oracle_runs r
		LEFT JOIN oracle_violations v ON v.run_id = r.run_id
		WHERE r.run_id = ?
		GROUP BY r.run_id`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Violations returns the stored violations of a run in report order.
func (s *RunStore) Violations(runID string) ([]oracle.Violation, error) {
	rows, err := s.db.Query(`
		SELECT body FROM oracle_violations
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	var out []oracle.Violation
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		var v oracle.Violation
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, fmt.Errorf("decode violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Delete removes a run and its violations.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM oracle_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r         Run
		oracles   string
		abortedBy sql.NullString
	)
	err := row.Scan(
		&r.RunID, &r.Scenario, &r.MapPath, &r.VehiclePath, &oracles,
		&r.Dispatched, &r.Aborted, &abortedBy, &r.DurationMs, &r.CreatedAt,
		&r.Violations, &r.Triggered,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if oracles != "" {
		r.Oracles = strings.Split(oracles, ",")
	}
	r.AbortedBy = abortedBy.String
	return &r, nil
}
