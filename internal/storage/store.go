// Package storage persists runs on disk, one directory per run holding
// metadata.json and trajectory.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/experiment"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

var trajectoryHeader = []string{"s", "x", "y", "z", "px", "py", "pz", "chord", "ok"}

// ErrRunNotFound is returned when no run with the given id exists.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Preset      string             `json:"preset,omitempty"`
	Stepper     string             `json:"stepper"`
	Driver      string             `json:"driver"`
	Field       string             `json:"field"`
	Charge      float64            `json:"charge"`
	Mass        float64            `json:"mass"`
	Tolerance   float64            `json:"tolerance"`
	Length      float64            `json:"length"`
	Segment     float64            `json:"segment"`
	Ok          bool               `json:"ok"`
	Evaluations int                `json:"evaluations"`
	Elapsed     time.Duration      `json:"elapsed"`
	Stats       driver.Stats       `json:"stats"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes a new run and returns its id. A missing id or timestamp in
// meta is filled in.
func (s *Store) Save(meta *RunMetadata, points []experiment.Point) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), points); err != nil {
		return "", fmt.Errorf("write trajectory: %w", err)
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrajectory(path string, points []experiment.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(trajectoryHeader); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, p := range points {
		row := []string{
			format(p.S),
			format(p.Pos.X), format(p.Pos.Y), format(p.Pos.Z),
			format(p.Mom.X), format(p.Mom.Y), format(p.Mom.Z),
			format(p.Chord),
			strconv.FormatBool(p.Ok),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata of %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadPoints(runID string) ([]experiment.Point, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(trajectoryHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trajectory of %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []experiment.Point{}, nil
	}

	points := make([]experiment.Point, 0, len(records)-1)
	for i, record := range records[1:] {
		p, err := parsePoint(record)
		if err != nil {
			return nil, fmt.Errorf("trajectory of %s, row %d: %w", runID, i+1, err)
		}
		points = append(points, p)
	}
	return points, nil
}

func parsePoint(record []string) (experiment.Point, error) {
	var v [8]float64
	for i := range v {
		f, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return experiment.Point{}, err
		}
		v[i] = f
	}
	ok, err := strconv.ParseBool(record[8])
	if err != nil {
		return experiment.Point{}, err
	}

	p := experiment.Point{S: v[0], Chord: v[7], Ok: ok}
	p.Pos.X, p.Pos.Y, p.Pos.Z = v[1], v[2], v[3]
	p.Mom.X, p.Mom.Y, p.Mom.Z = v[4], v[5], v[6]
	return p, nil
}

// ExportData is the JSON form of a stored run.
type ExportData struct {
	Metadata *RunMetadata       `json:"metadata"`
	Points   []experiment.Point `json:"points"`
}

// Export writes a stored run as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	points, err := s.LoadPoints(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Metadata: meta, Points: points})
}
