package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
	"songrec/internal/domain"
	"songrec/internal/port"
)

var _ port.TrackStore = (*BoltStore)(nil)

var (
	bucketTracks   = []byte("tracks")
	bucketTrackIDs = []byte("track_ids")
	bucketIndex    = []byte("index")
	bucketStats    = []byte("stats")
	keyIndexBlob   = []byte("similarity")
	keyTrainStats  = []byte("train_stats")
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketTracks, bucketTrackIDs, bucketIndex, bucketStats}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// OpenReadOnly opens an existing database without taking the write lock,
// so several readers can share it.
func OpenReadOnly(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func rowKey(row int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(row))
	return k[:]
}

func (s *BoltStore) SaveModel(tracks []domain.TrackRow, indexBlob []byte, stats domain.TrainStats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTracks, bucketTrackIDs, bucketIndex} {
			if err := resetBucket(tx, name); err != nil {
				return err
			}
		}

		tracksBucket := tx.Bucket(bucketTracks)
		idsBucket := tx.Bucket(bucketTrackIDs)
		for _, t := range tracks {
			data, err := json.Marshal(t)
			if err != nil {
				return err
			}
			key := rowKey(t.Row)
			if err := tracksBucket.Put(key, data); err != nil {
				return err
			}
			// Duplicate ids across merged files resolve to the first row.
			if t.Track.ID != "" && idsBucket.Get([]byte(t.Track.ID)) == nil {
				if err := idsBucket.Put([]byte(t.Track.ID), key); err != nil {
					return err
				}
			}
		}

		if err := tx.Bucket(bucketIndex).Put(keyIndexBlob, indexBlob); err != nil {
			return err
		}

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyTrainStats, data)
	})
}

func resetBucket(tx *bbolt.Tx, name []byte) error {
	if tx.Bucket(name) != nil {
		if err := tx.DeleteBucket(name); err != nil {
			return fmt.Errorf("failed to clear bucket %s: %w", name, err)
		}
	}
	_, err := tx.CreateBucket(name)
	return err
}

func (s *BoltStore) IndexBlob() ([]byte, error) {
	var blob []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketIndex)
		if b == nil {
			return domain.ErrNoIndex
		}
		data := b.Get(keyIndexBlob)
		if data == nil {
			return domain.ErrNoIndex
		}
		// bbolt memory is only valid inside the transaction.
		blob = append([]byte(nil), data...)
		return nil
	})
	return blob, err
}

func (s *BoltStore) GetTrackByRow(row int) (domain.TrackRow, error) {
	var t domain.TrackRow
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTracks)
		if b == nil {
			return domain.ErrNoIndex
		}
		data := b.Get(rowKey(row))
		if data == nil {
			return fmt.Errorf("row %d: %w", row, domain.ErrTrackNotFound)
		}
		return json.Unmarshal(data, &t)
	})
	return t, err
}

func (s *BoltStore) GetTrackByID(id string) (domain.TrackRow, error) {
	var t domain.TrackRow
	err := s.db.View(func(tx *bbolt.Tx) error {
		ids, tracks := tx.Bucket(bucketTrackIDs), tx.Bucket(bucketTracks)
		if ids == nil || tracks == nil {
			return domain.ErrNoIndex
		}
		key := ids.Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%s: %w", id, domain.ErrTrackNotFound)
		}
		data := tracks.Get(key)
		if data == nil {
			return fmt.Errorf("%s: %w", id, domain.ErrTrackNotFound)
		}
		return json.Unmarshal(data, &t)
	})
	return t, err
}

// SearchTracks matches the query case-insensitively against title and
// artist, returning rows in matrix order.
func (s *BoltStore) SearchTracks(query string, limit int) ([]domain.TrackRow, error) {
	var matches []domain.TrackRow
	q := strings.ToLower(strings.TrimSpace(query))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTracks)
		if b == nil {
			return domain.ErrNoIndex
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var t domain.TrackRow
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if matchesTrack(t.Track, q) {
				matches = append(matches, t)
				if limit > 0 && len(matches) >= limit {
					return nil
				}
			}
		}
		return nil
	})
	return matches, err
}

func matchesTrack(t domain.Track, q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Artist), q)
}

func (s *BoltStore) TrainStats() (domain.TrainStats, error) {
	var stats domain.TrainStats
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketStats)
		if b == nil {
			return nil
		}
		data := b.Get(keyTrainStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
