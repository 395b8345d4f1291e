// Package storage keeps finished runs on disk: one directory per run holding
// metadata.json and a CSV of the points, indexed by a SQLite catalog.
package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/dynamo"
)

//go:embed schema.sql
var schemaSQL string

const (
	catalogFile    = "catalog.db"
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	statesFile     = "states.csv"
)

const (
	KindScalar = "scalar"
	KindSystem = "system"
)

var (
	ErrNotInitialized = errors.New("storage: store not initialized")
	ErrNotFound       = errors.New("storage: run not found")
	ErrWrongKind      = errors.New("storage: run has a different kind")
)

type Store struct {
	baseDir string
	db      *sql.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Kind           string             `json:"kind"`
	Problem        string             `json:"problem"`
	Timestamp      time.Time          `json:"timestamp"`
	Integrator     string             `json:"integrator"`
	SeedConvention string             `json:"seed_convention,omitempty"`
	Reference      string             `json:"reference,omitempty"`
	X0             float64            `json:"x0"`
	Y0             float64            `json:"y0"`
	H              float64            `json:"h"`
	N              int                `json:"n"`
	Points         int                `json:"points"`
	MaxAbs         float64            `json:"max_abs,omitempty"`
	Params         map[string]float64 `json:"params,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// Init creates the data directory and opens the catalog.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func newRunID(problem string) string {
	return problem + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Save stores a scalar trajectory and, when cmp is non-nil, its reference
// columns. meta.ID, Kind, Timestamp, Points and MaxAbs are filled in.
func (s *Store) Save(meta RunMetadata, traj dynamo.Trajectory, cmp *analysis.Comparison) (string, error) {
	if s.db == nil {
		return "", ErrNotInitialized
	}
	meta.Kind = KindScalar
	meta.Points = len(traj)
	if cmp != nil {
		meta.MaxAbs = cmp.MaxAbs
	}

	return s.save(&meta, func(runDir string) error {
		f, err := os.Create(filepath.Join(runDir, trajectoryFile))
		if err != nil {
			return err
		}
		defer f.Close()
		return WriteCSV(f, traj, cmp)
	})
}

// SaveResult stores a system run as one row per state.
func (s *Store) SaveResult(meta RunMetadata, result *dynamo.Result) (string, error) {
	if s.db == nil {
		return "", ErrNotInitialized
	}
	meta.Kind = KindSystem
	meta.Points = len(result.States)
	meta.Metrics = result.Metrics

	return s.save(&meta, func(runDir string) error {
		f, err := os.Create(filepath.Join(runDir, statesFile))
		if err != nil {
			return err
		}
		defer f.Close()
		return WriteStatesCSV(f, result)
	})
}

func (s *Store) save(meta *RunMetadata, writeData func(runDir string) error) (string, error) {
	meta.ID = newRunID(meta.Problem)
	meta.Timestamp = time.Now()
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeData(runDir); err != nil {
		return "", err
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (id, kind, problem, integrator, reference, points, max_abs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Kind, meta.Problem, meta.Integrator, meta.Reference,
		meta.Points, meta.MaxAbs, meta.Timestamp.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("catalog %s: %w", meta.ID, err)
	}

	return meta.ID, nil
}

// List returns the catalog, newest first. Only the indexed fields are set.
func (s *Store) List() ([]RunMetadata, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.Query(
		`SELECT id, kind, problem, integrator, reference, points, max_abs, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			meta    RunMetadata
			maxAbs  sql.NullFloat64
			created int64
		)
		if err := rows.Scan(&meta.ID, &meta.Kind, &meta.Problem, &meta.Integrator,
			&meta.Reference, &meta.Points, &maxAbs, &created); err != nil {
			return nil, err
		}
		meta.MaxAbs = maxAbs.Float64
		meta.Timestamp = time.Unix(0, created)
		runs = append(runs, meta)
	}

	return runs, rows.Err()
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrajectory reads a scalar run back. ref is nil when the run was saved
// without a reference.
func (s *Store) LoadTrajectory(runID string) (dynamo.Trajectory, []float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	if meta.Kind != KindScalar {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrWrongKind, runID, meta.Kind)
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// LoadStates reads a system run back as states and times.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	if meta.Kind != KindSystem {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrWrongKind, runID, meta.Kind)
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return ReadStatesCSV(f)
}
