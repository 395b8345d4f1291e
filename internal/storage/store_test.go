package storage

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/dynamo"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })
	return st, dir
}

func sampleRun(t *testing.T) (dynamo.Trajectory, *analysis.Comparison) {
	t.Helper()
	traj := dynamo.Trajectory{{X: 0, Y: 1}, {X: 0.1, Y: 1.1103416666666666}, {X: 0.2, Y: 1.2428051417013888}}
	ref := []float64{1, 1.1103418361512953, 1.2428055163203397}
	cmp, err := analysis.Compare(traj, traj.Xs(), ref)
	require.NoError(t, err)
	return traj, cmp
}

func TestStoreSaveLoad(t *testing.T) {
	st, dir := openStore(t)
	traj, cmp := sampleRun(t)

	runID, err := st.Save(RunMetadata{
		Problem:        "linear",
		Integrator:     "rk4",
		SeedConvention: "include",
		Reference:      "exact",
		X0:             0,
		Y0:             1,
		H:              0.1,
		N:              3,
	}, traj, cmp)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(runID, "linear_"))
	assert.Len(t, runID, len("linear_")+8)
	assert.FileExists(t, filepath.Join(dir, runID, "metadata.json"))
	assert.FileExists(t, filepath.Join(dir, runID, "trajectory.csv"))

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "linear", meta.Problem)
	assert.Equal(t, KindScalar, meta.Kind)
	assert.Equal(t, 3, meta.Points)
	assert.InDelta(t, cmp.MaxAbs, meta.MaxAbs, 1e-18)

	loaded, ref, err := st.LoadTrajectory(runID)
	require.NoError(t, err)
	assert.Equal(t, traj, loaded)
	assert.Equal(t, cmp.Reference, ref)

	_, _, err = st.LoadStates(runID)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestStoreWithoutReference(t *testing.T) {
	st, _ := openStore(t)
	traj, _ := sampleRun(t)

	runID, err := st.Save(RunMetadata{Problem: "linear", Integrator: "rk4"}, traj, nil)
	require.NoError(t, err)

	loaded, ref, err := st.LoadTrajectory(runID)
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.Nil(t, ref)
}

func TestStoreList(t *testing.T) {
	st, _ := openStore(t)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	traj, cmp := sampleRun(t)
	first, err := st.Save(RunMetadata{Problem: "linear", Integrator: "rk4", Reference: "exact"}, traj, cmp)
	require.NoError(t, err)
	second, err := st.Save(RunMetadata{Problem: "decay", Integrator: "euler"}, traj, nil)
	require.NoError(t, err)

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID, "newest run first")
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, "exact", runs[1].Reference)
	assert.Equal(t, 3, runs[1].Points)
}

func TestStoreSystemRun(t *testing.T) {
	st, _ := openStore(t)

	result := &dynamo.Result{
		States:  []dynamo.State{{0, 1, 1.05}, {0.1, 0.99, 1.02}},
		Times:   []float64{0, 0.01},
		Metrics: map[string]float64{"extent": 0.1},
	}
	runID, err := st.SaveResult(RunMetadata{Problem: "lorenz", Integrator: "euler", H: 0.01, N: 2,
		Params: map[string]float64{"rho": 28}}, result)
	require.NoError(t, err)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, KindSystem, meta.Kind)
	assert.Equal(t, 0.1, meta.Metrics["extent"])
	assert.Equal(t, 28.0, meta.Params["rho"])

	states, times, err := st.LoadStates(runID)
	require.NoError(t, err)
	assert.Equal(t, result.Times, times)
	assert.Equal(t, result.States, states)

	_, _, err = st.LoadTrajectory(runID)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestStoreErrors(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Save(RunMetadata{Problem: "linear"}, nil, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = st.List()
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = st.Load("missing_00000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())
	traj, _ := sampleRun(t)
	_, err := st.Save(RunMetadata{Problem: "linear", Integrator: "rk4"}, traj, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	again := New(dir)
	require.NoError(t, again.Init())
	defer again.Close()
	runs, err := again.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteCSV(t *testing.T) {
	traj, cmp := sampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, traj, cmp))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "x,y,reference,abs_diff", lines[0])
	assert.Equal(t, "0,1,1,0", lines[1])

	short := &analysis.Comparison{Reference: []float64{1}}
	assert.ErrorIs(t, WriteCSV(&buf, traj, short), dynamo.ErrDomainMismatch)

	_, _, err := ReadCSV(strings.NewReader("x,y\n0,abc\n"))
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	traj, cmp := sampleRun(t)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, RunMetadata{ID: "linear_deadbeef", Problem: "linear"}, traj, cmp))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "linear_deadbeef", data.Meta.ID)
	assert.Equal(t, traj.Ys(), data.Ys)
	assert.Equal(t, cmp.AbsDiff, data.AbsDiff)

	buf.Reset()
	require.NoError(t, ExportJSON(&buf, RunMetadata{Problem: "linear"}, traj, nil))
	assert.NotContains(t, buf.String(), "abs_diff")
}
