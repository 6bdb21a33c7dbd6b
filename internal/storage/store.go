package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store persists run summaries under a base directory, one
// subdirectory per run.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// StageCounts are the final tallies of one apparatus.
type StageCounts struct {
	Orientation string  `json:"orientation"`
	Up          int     `json:"up"`
	Down        int     `json:"down"`
	UpRate      float64 `json:"up_rate"`
	DownRate    float64 `json:"down_rate"`
}

type RunMetadata struct {
	ID          string        `json:"id"`
	Arrangement string        `json:"arrangement"`
	Timestamp   time.Time     `json:"timestamp"`
	Seed        int64         `json:"seed"`
	Dt          float64       `json:"dt"`
	Duration    float64       `json:"duration"`
	Source      string        `json:"source"`
	BeamRate    float64       `json:"beam_rate"`
	Preparation string        `json:"preparation"`
	Stages      []StageCounts `json:"stages"`
}

// Save writes metadata.json and counts.csv for a finished run and
// returns the run ID.
func (s *Store) Save(meta RunMetadata) (string, error) {
	// Nanosecond stamp keeps back-to-back runs of one arrangement
	// from landing in the same directory.
	runID := fmt.Sprintf("%s_%d", meta.Arrangement, time.Now().UnixNano())
	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "counts.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"stage", "orientation", "up", "down", "up_rate", "down_rate"}); err != nil {
		return "", err
	}
	for i, st := range meta.Stages {
		row := []string{
			strconv.Itoa(i),
			st.Orientation,
			strconv.Itoa(st.Up),
			strconv.Itoa(st.Down),
			strconv.FormatFloat(st.UpRate, 'f', 4, 64),
			strconv.FormatFloat(st.DownRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (RunMetadata, error) {
	var meta RunMetadata
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}
