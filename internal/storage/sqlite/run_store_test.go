package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scenario.report/internal/monitoring"
	"github.com/banshee-data/scenario.report/internal/oracle"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(nil)
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleViolations() []oracle.Violation {
	return []oracle.Violation{
		oracle.NewViolation("acceleration", false,
			oracle.F("max_acceleration", 1.5),
			oracle.F("min_acceleration", -0.5),
		),
		oracle.NewViolation("collision", true,
			oracle.F("ego_x", 10.0),
			oracle.F("collision_type", "front"),
		),
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestOpen_Reopen(t *testing.T) {
	monitoring.SetLogger(nil)
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := Open(path)
	require.NoError(t, err)
	store := NewRunStore(db.DB)
	require.NoError(t, store.Insert(&Run{RunID: "keep", Scenario: "s", MapPath: "m", VehiclePath: "v"}, nil))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	run, err := NewRunStore(db.DB).Get("keep")
	require.NoError(t, err)
	assert.Equal(t, "s", run.Scenario)
}

func TestRunStore_InsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	res := &oracle.Result{Violations: sampleViolations(), Dispatched: 42, Aborted: true, AbortedBy: "collision"}
	run := NewRun("scenario.jsonl", "map.geojson", "vehicle.yaml", []string{"acceleration", "collision"}, res, 1500*time.Millisecond)
	require.NoError(t, store.Insert(run, res.Violations))

	assert.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAt)

	got, err := store.Get(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "scenario.jsonl", got.Scenario)
	assert.Equal(t, []string{"acceleration", "collision"}, got.Oracles)
	assert.Equal(t, 42, got.Dispatched)
	assert.True(t, got.Aborted)
	assert.Equal(t, "collision", got.AbortedBy)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, 2, got.Violations)
	assert.Equal(t, 1, got.Triggered)
}

func TestRunStore_ViolationsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	run := &Run{Scenario: "s", MapPath: "m", VehiclePath: "v"}
	require.NoError(t, store.Insert(run, sampleViolations()))

	vs, err := store.Violations(run.RunID)
	require.NoError(t, err)
	require.Len(t, vs, 2)

	assert.Equal(t, "acceleration", vs[0].Name())
	assert.False(t, vs[0].Triggered())
	assert.Equal(t, []string{"max_acceleration", "min_acceleration"}, vs[0].Features().Keys())
	maxAcc, ok := vs[0].Features().Float("max_acceleration")
	require.True(t, ok)
	assert.InDelta(t, 1.5, maxAcc, 1e-12)

	assert.Equal(t, "collision", vs[1].Name())
	assert.True(t, vs[1].Triggered())
	kind, _ := vs[1].Feature("collision_type")
	assert.Equal(t, "front", kind)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	for i, id := range []string{"a", "b", "c"} {
		run := &Run{RunID: id, Scenario: id, MapPath: "m", VehiclePath: "v", CreatedAt: int64(100 + i)}
		require.NoError(t, store.Insert(run, nil))
	}

	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "a", runs[2].RunID)
	assert.Zero(t, runs[0].Violations)
	assert.Nil(t, runs[0].Oracles)

	runs, err = store.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunStore_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	require.NoError(t, store.Insert(&Run{RunID: "x", Scenario: "s", MapPath: "m", VehiclePath: "v"}, nil))
	err := store.Insert(&Run{RunID: "x", Scenario: "s", MapPath: "m", VehiclePath: "v"}, sampleViolations())
	assert.Error(t, err)

	// The failed insert must not leave stray violations behind.
	vs, err := store.Violations("x")
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestRunStore_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrRunNotFound)
}

func TestRunStore_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	run := &Run{Scenario: "s", MapPath: "m", VehiclePath: "v"}
	require.NoError(t, store.Insert(run, sampleViolations()))
	require.NoError(t, store.Delete(run.RunID))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM oracle_violations`).Scan(&n))
	assert.Zero(t, n)
}

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	})
	// Non-busy errors are returned immediately.
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
