package store

import (
	"fmt"
	"sync"

	"sceneqc/internal/report"
)

// MemStore implements Store in memory.
type MemStore struct {
	mu       sync.Mutex
	runs     []*Run
	findings map[int64][]report.Finding
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{findings: make(map[int64][]report.Finding)}
}

func (s *MemStore) SaveRun(run *Run, r *report.Report) (int64, error) {
	cp, err := runFromReport(run, r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp.ID = int64(len(s.runs) + 1)
	s.runs = append(s.runs, &cp)
	s.findings[cp.ID] = append([]report.Finding{}, r.Findings()...)
	return cp.ID, nil
}

func (s *MemStore) GetRun(id int64) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.runs)) {
		return nil, nil
	}
	cp := *s.runs[id-1]
	return &cp, nil
}

func (s *MemStore) ListRuns(sceneID string, limit int) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Run{}
	for i := len(s.runs) - 1; i >= 0; i-- {
		if sceneID != "" && s.runs[i].Scene != sceneID {
			continue
		}
		cp := *s.runs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemStore) ListFindings(runID int64) ([]report.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.Finding{}, s.findings[runID]...), nil
}

func (s *MemStore) NewFindings(runID int64) ([]report.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if runID < 1 || runID > int64(len(s.runs)) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	sceneID := s.runs[runID-1].Scene
	var prev []report.Finding
	for i := runID - 2; i >= 0; i-- {
		if s.runs[i].Scene == sceneID {
			prev = s.findings[s.runs[i].ID]
			break
		}
	}
	return newSince(prev, s.findings[runID]), nil
}

func (s *MemStore) Close() error { return nil }
