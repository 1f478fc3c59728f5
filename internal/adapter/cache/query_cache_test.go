package cache

import (
	"errors"
	"testing"
	"time"

	"songrec/internal/domain"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Query(v domain.FeatureVector, k int) (domain.NeighborResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return domain.NeighborResult{{Row: int(v[0]), Distance: 0}, {Row: k, Distance: 0.5}}, nil
}

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	v := domain.FeatureVector{1, 2, 3}

	if _, hit := c.Get(v, 5); hit {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(v, 5, domain.NeighborResult{{Row: 1, Distance: 0.1}})

	got, hit := c.Get(v, 5)
	if !hit || len(got) != 1 || got[0].Row != 1 {
		t.Errorf("expected hit with stored result, got %v %v", got, hit)
	}

	if _, hit := c.Get(v, 6); hit {
		t.Error("different k must not share an entry")
	}
	if _, hit := c.Get(domain.FeatureVector{1, 2, 3.0000001}, 5); hit {
		t.Error("different vector must not share an entry")
	}
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	v := domain.FeatureVector{1}
	c.Put(v, 1, domain.NeighborResult{{Row: 1}})

	got, _ := c.Get(v, 1)
	got[0].Row = 99

	again, _ := c.Get(v, 1)
	if again[0].Row != 1 {
		t.Error("mutating a returned result changed the cached entry")
	}
}

func TestQueryCache_Eviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	a, b, d := domain.FeatureVector{1}, domain.FeatureVector{2}, domain.FeatureVector{3}

	c.Put(a, 1, nil)
	c.Put(b, 1, nil)
	c.Get(a, 1) // a becomes most recent
	c.Put(d, 1, nil)

	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
	if _, hit := c.Get(b, 1); hit {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, hit := c.Get(a, 1); !hit {
		t.Error("expected recently used entry to survive")
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Millisecond)
	v := domain.FeatureVector{1}
	c.Put(v, 1, domain.NeighborResult{{Row: 0}})

	time.Sleep(5 * time.Millisecond)

	if _, hit := c.Get(v, 1); hit {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry removed, size %d", c.Size())
	}
}

func TestCachedSearcher(t *testing.T) {
	inner := &countingSearcher{}
	s := NewCachedSearcher(inner, NewQueryCache(10, time.Minute))
	v := domain.FeatureVector{4, 0}

	first, err := s.Query(v, 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Query(v, 2)
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 underlying query, got %d", inner.calls)
	}
	if first[0].Row != second[0].Row || first[1].Row != second[1].Row {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
}

func TestCachedSearcher_ErrorsNotCached(t *testing.T) {
	inner := &countingSearcher{err: errors.New("boom")}
	s := NewCachedSearcher(inner, NewQueryCache(10, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := s.Query(domain.FeatureVector{1}, 1); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("expected errors to bypass the cache, got %d calls", inner.calls)
	}
}
