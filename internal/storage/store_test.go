package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/experiment"
)

func samplePoints() []experiment.Point {
	return []experiment.Point{
		{S: 0, Pos: r3.Vec{}, Mom: r3.Vec{Y: 1000}, Ok: true},
		{S: 50, Pos: r3.Vec{X: -0.374, Y: 49.997}, Mom: r3.Vec{X: -14.98, Y: 999.89}, Chord: 49.9985, Ok: true},
		{S: 61.25, Pos: r3.Vec{X: -0.5625, Y: 61.24, Z: 1e-9}, Mom: r3.Vec{X: -18.3, Y: 999.8}, Chord: 11.25, Ok: false},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	meta := &RunMetadata{
		Stepper:     "dormand-prince",
		Driver:      "mag",
		Field:       "uniform",
		Tolerance:   1e-6,
		Length:      100,
		Segment:     50,
		Evaluations: 420,
		Stats:       driver.Stats{Calls: 2, GoodSteps: 7, DyerrMax: 0.25},
		Metrics:     map[string]float64{"helix_deviation": 1.5e-4},
	}

	runID, err := st.Save(meta, samplePoints())
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.False(t, meta.Timestamp.IsZero())

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "dormand-prince", loaded.Stepper)
	assert.Equal(t, 420, loaded.Evaluations)
	assert.Equal(t, meta.Stats, loaded.Stats)
	assert.Equal(t, 1.5e-4, loaded.Metrics["helix_deviation"])

	points, err := st.LoadPoints(runID)
	require.NoError(t, err)
	assert.Equal(t, samplePoints(), points)
}

func TestStoreKeepsGivenID(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(&RunMetadata{ID: "fixed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", runID)

	points, err := st.LoadPoints("fixed")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := New(filepath.Join(dir, "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	now := time.Now()
	_, err = st.Save(&RunMetadata{ID: "b", Timestamp: now}, nil)
	require.NoError(t, err)
	_, err = st.Save(&RunMetadata{ID: "a", Timestamp: now.Add(time.Minute)}, nil)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "junk"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0644))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)
}

func TestStoreNotFound(t *testing.T) {
	st := New(t.TempDir())

	_, err := st.Load("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = st.LoadPoints("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStoreCorruptTrajectory(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	_, err := st.Save(&RunMetadata{ID: "r"}, samplePoints())
	require.NoError(t, err)

	path := filepath.Join(dir, "r", trajectoryFile)
	data := "s,x,y,z,px,py,pz,chord,ok\n0,0,0,0,0,1,0,0,maybe\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err = st.LoadPoints("r")
	assert.ErrorContains(t, err, "row 1")
}

func TestStoreExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(&RunMetadata{Stepper: "cash-karp", Ok: true}, samplePoints())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.Export(&buf, runID))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, runID, data.Metadata.ID)
	assert.Equal(t, "cash-karp", data.Metadata.Stepper)
	assert.Len(t, data.Points, 3)

	assert.ErrorIs(t, st.Export(&buf, "missing"), ErrRunNotFound)
}
