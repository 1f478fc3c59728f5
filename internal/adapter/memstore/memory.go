package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"songrec/internal/domain"
	"songrec/internal/port"
)

var _ port.TrackStore = (*MemoryStore)(nil)

type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[int]domain.TrackRow
	ids   map[string]int
	blob  []byte
	stats domain.TrainStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[int]domain.TrackRow),
		ids:  make(map[string]int),
	}
}

func (s *MemoryStore) SaveModel(tracks []domain.TrackRow, indexBlob []byte, stats domain.TrainStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = make(map[int]domain.TrackRow, len(tracks))
	s.ids = make(map[string]int, len(tracks))
	for _, t := range tracks {
		s.rows[t.Row] = t
		if _, ok := s.ids[t.Track.ID]; !ok && t.Track.ID != "" {
			s.ids[t.Track.ID] = t.Row
		}
	}
	s.blob = append([]byte(nil), indexBlob...)
	s.stats = stats
	return nil
}

func (s *MemoryStore) IndexBlob() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.blob == nil {
		return nil, domain.ErrNoIndex
	}
	return append([]byte(nil), s.blob...), nil
}

func (s *MemoryStore) GetTrackByRow(row int) (domain.TrackRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.rows[row]
	if !ok {
		return domain.TrackRow{}, fmt.Errorf("row %d: %w", row, domain.ErrTrackNotFound)
	}
	return t, nil
}

func (s *MemoryStore) GetTrackByID(id string) (domain.TrackRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.ids[id]
	if !ok {
		return domain.TrackRow{}, fmt.Errorf("%s: %w", id, domain.ErrTrackNotFound)
	}
	return s.rows[row], nil
}

func (s *MemoryStore) SearchTracks(query string, limit int) ([]domain.TrackRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]int, 0, len(s.rows))
	for r := range s.rows {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	q := strings.ToLower(strings.TrimSpace(query))
	var matches []domain.TrackRow
	for _, r := range rows {
		t := s.rows[r]
		if q == "" ||
			strings.Contains(strings.ToLower(t.Track.Title), q) ||
			strings.Contains(strings.ToLower(t.Track.Artist), q) {
			matches = append(matches, t)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

func (s *MemoryStore) TrainStats() (domain.TrainStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
