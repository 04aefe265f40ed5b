package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scenario.report/internal/hdmap"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/oracles"
	"github.com/banshee-data/scenario.report/internal/record"
	"github.com/banshee-data/scenario.report/internal/report"
)

const vehicleYAML = `length: 4.933
width: 2.11
height: 1.48
front_edge_to_center: 3.89
back_edge_to_center: 1.043
left_edge_to_center: 1.055
right_edge_to_center: 1.055
`

type fixture struct {
	dir      string
	vehicle  string
	mapPath  string
	scenario string
}

// newFixture writes a straight 100 m lane, a vehicle and a ten second run
// that drives the lane end to end at the speed limit.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		vehicle:  filepath.Join(dir, "vehicle.yaml"),
		mapPath:  filepath.Join(dir, "map.geojson"),
		scenario: filepath.Join(dir, "run.jsonl.gz"),
	}
	require.NoError(t, os.WriteFile(f.vehicle, []byte(vehicleYAML), 0o644))
	require.NoError(t, hdmap.WriteGeoJSON(f.mapPath, []hdmap.Lane{hdmap.StraightLane("east", 0, 0, 0, 100, 3.5, 10)}))

	w, err := record.Create(f.scenario)
	require.NoError(t, err)
	require.NoError(t, w.Record(record.TopicRoutingRequest, 0, &record.RoutingRequest{
		Waypoints: []record.LaneWaypoint{{LaneID: "east", S: 0}, {LaneID: "east", S: 100, Pose: &record.PointENU{X: 100}}},
	}))
	require.NoError(t, w.Record(record.TopicRoutingResponse, 0, &record.RoutingResponse{
		Roads: []record.RoadSegment{{ID: "r0", Passages: []record.Passage{{Segments: []record.LaneSegment{{LaneID: "east", EndS: 100}}}}}},
	}))
	const sec = int64(1e9)
	for i := 0; i <= 10; i++ {
		ts := int64(i) * sec
		require.NoError(t, w.Record(record.TopicLocalization, ts, &record.Localization{Pose: record.Pose{
			Position:       record.Vec3{X: 10 * float64(i)},
			LinearVelocity: record.Vec3{X: 10},
		}}))
		require.NoError(t, w.Record(record.TopicObstacles, ts+sec/2, &record.PerceptionObstacles{
			Obstacles: []record.PerceptionObstacle{{ID: 9, Type: record.ObstacleVehicle, Position: record.Vec3{X: 50, Y: 20}, Length: 2, Width: 2, Height: 1.5}},
		}))
	}
	require.NoError(t, w.Close())
	return f
}

func (f fixture) out(name string) string { return filepath.Join(f.dir, name) }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd(oracles.DefaultRegistry())
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// --- analyze ---

func TestAnalyze_AllOracles(t *testing.T) {
	f := newFixture(t)
	out := f.out("report.json")
	db := f.out("runs.db")
	plots := f.out("plots")
	prom := f.out("metrics.prom")

	stdout, err := execute(t, "analyze",
		"-v", f.vehicle, "-m", f.mapPath, "--all",
		"--optimal-refer", f.scenario,
		"--db", db, "--plot-dir", plots, "--metrics-out", prom,
		f.scenario, out)
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "Active oracles: acceleration, collision, destination, optimal, speeding")
	assert.Contains(t, stdout, "5 violations, 0 triggered")

	vs, err := report.Read(out, report.FormatJSON)
	require.NoError(t, err)
	require.Len(t, vs, 5)
	var names []string
	for _, v := range vs {
		names = append(names, v.Name())
		assert.False(t, v.Triggered(), v.String())
	}
	assert.Equal(t, []string{"acceleration", "collision", "destination", "optimal", "speeding"}, names)

	for _, name := range []string{"optimal_trajectory.png", "optimal_occupancy.html"} {
		_, err := os.Stat(filepath.Join(plots, name))
		assert.NoError(t, err, name)
	}

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "scenario_messages_dispatched_total")
	assert.Contains(t, string(metrics), `scenario_oracle_violations_total{oracle="speeding",triggered="false"} 1`)

	listing, err := execute(t, "runs", "--db", db)
	require.NoError(t, err, listing)
	assert.Contains(t, listing, "0/5 triggered")
	assert.Contains(t, listing, "completed")
}

func TestAnalyze_ExcludeAndProto(t *testing.T) {
	f := newFixture(t)
	out := f.out("report.pb")

	stdout, err := execute(t, "analyze", "-v", f.vehicle, "-m", f.mapPath,
		"-e", "optimal", "--format", "pb", f.scenario, out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Active oracles: acceleration, collision, destination, speeding\n")

	vs, err := report.Read(out, report.FormatProto)
	require.NoError(t, err)
	assert.Len(t, vs, 4)
}

func TestAnalyze_IncludeOnly(t *testing.T) {
	f := newFixture(t)
	stdout, err := execute(t, "analyze", "-v", f.vehicle, "-m", f.mapPath,
		"-i", "speeding,destination", "-i", "nonexistent", f.scenario, f.out("r.json"))
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Active oracles: destination, speeding\n")
}

func TestAnalyze_Errors(t *testing.T) {
	f := newFixture(t)
	existing := f.out("existing.json")
	require.NoError(t, os.WriteFile(existing, []byte("[]"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing vehicle flag", []string{"-m", f.mapPath, f.scenario, f.out("a.json")}, "vehicle"},
		{"missing vehicle file", []string{"-v", f.out("nope.yaml"), "-m", f.mapPath, f.scenario, f.out("a.json")}, "vehicle file"},
		{"missing map file", []string{"-v", f.vehicle, "-m", f.out("nope.geojson"), f.scenario, f.out("a.json")}, "map file"},
		{"missing scenario", []string{"-v", f.vehicle, "-m", f.mapPath, f.out("nope.jsonl"), f.out("a.json")}, "scenario file"},
		{"output exists", []string{"-v", f.vehicle, "-m", f.mapPath, f.scenario, existing}, "already exists"},
		{"all with exclude", []string{"-v", f.vehicle, "-m", f.mapPath, "-a", "-e", "speeding", f.scenario, f.out("a.json")}, "mutually exclusive"},
		{"include and exclude overlap", []string{"-v", f.vehicle, "-m", f.mapPath, "-i", "speeding", "-e", "speeding", f.scenario, f.out("a.json")}, "both included and excluded"},
		{"optimal without reference", []string{"-v", f.vehicle, "-m", f.mapPath, "-i", "optimal", f.scenario, f.out("a.json")}, "optimal-refer"},
		{"bad format", []string{"-v", f.vehicle, "-m", f.mapPath, "--format", "xml", f.scenario, f.out("a.json")}, "format"},
		{"missing args", []string{"-v", f.vehicle, "-m", f.mapPath, f.scenario}, "arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"analyze"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			_, statErr := os.Stat(f.out("a.json"))
			assert.True(t, os.IsNotExist(statErr), "no report may be written on failure")
		})
	}

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestAnalyze_OptimalWithoutReferenceIsConfigError(t *testing.T) {
	f := newFixture(t)
	reg := oracles.DefaultRegistry()
	cmd := newRootCmd(reg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze", "-v", f.vehicle, "-m", f.mapPath, "-i", "optimal", f.scenario, f.out("a.json")})
	assert.ErrorIs(t, cmd.Execute(), oracle.ErrConfig)
}

// --- list / runs ---

func TestList(t *testing.T) {
	stdout, err := execute(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	var names []string
	for _, l := range lines {
		if !strings.HasPrefix(l, " ") {
			names = append(names, strings.Fields(l)[0])
		}
	}
	assert.Equal(t, []string{"acceleration", "collision", "destination", "optimal", "speeding"}, names)
	assert.Contains(t, stdout, "--optimal-refer")
	assert.Contains(t, stdout, "--collision-ignore")
}

func TestRuns_MissingDatabase(t *testing.T) {
	_, err := execute(t, "runs", "--db", filepath.Join(t.TempDir(), "none.db"))
	assert.Error(t, err)
}

func TestRunsShow(t *testing.T) {
	f := newFixture(t)
	db := f.out("runs.db")
	stdout, err := execute(t, "analyze", "-v", f.vehicle, "-m", f.mapPath, "-i", "speeding",
		"--db", db, f.scenario, f.out("r.json"))
	require.NoError(t, err, stdout)

	var id string
	for _, l := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(l, "Stored run ") {
			id = strings.Fields(l)[2]
		}
	}
	require.NotEmpty(t, id, stdout)

	shown, err := execute(t, "runs", "show", id, "--db", db)
	require.NoError(t, err, shown)
	vs, err := report.DecodeJSON([]byte(shown))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "speeding", vs[0].Name())

	_, err = execute(t, "runs", "show", "missing", "--db", db)
	assert.Error(t, err)
}
