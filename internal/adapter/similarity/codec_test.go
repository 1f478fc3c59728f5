package similarity

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"songrec/internal/domain"
)

func TestPersistRestore_RoundTrip(t *testing.T) {
	m := randomMatrix(250, domain.FeatureDim, 99)
	orig, err := Build(m, 15)
	if err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(orig.Persist())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if restored.Dim() != orig.Dim() || restored.Len() != orig.Len() || restored.KDefault() != orig.KDefault() {
		t.Fatalf("header mismatch: dim %d/%d rows %d/%d k %d/%d",
			restored.Dim(), orig.Dim(), restored.Len(), orig.Len(), restored.KDefault(), orig.KDefault())
	}

	queries := append([]domain.FeatureVector{}, m.Rows[:25]...)
	queries = append(queries, randomMatrix(25, domain.FeatureDim, 100).Rows...)
	for i, q := range queries {
		want, err := orig.Query(q, 0)
		if err != nil {
			t.Fatal(err)
		}
		got, err := restored.Query(q, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("query %d: restored index answered differently", i)
		}
	}
}

func TestPersist_Layout(t *testing.T) {
	idx, err := Build(matrixOf([]float64{1, 2, 3}, []float64{4, 5, 6}), 7)
	if err != nil {
		t.Fatal(err)
	}

	blob := idx.Persist()
	if len(blob) != headerSize+2*3*8+checksumSize {
		t.Fatalf("unexpected blob size %d", len(blob))
	}
	if string(blob[:4]) != "SGRX" {
		t.Errorf("unexpected magic %q", blob[:4])
	}
	if v := binary.LittleEndian.Uint16(blob[4:6]); v != FormatVersion {
		t.Errorf("expected version %d, got %d", FormatVersion, v)
	}
	if k := binary.LittleEndian.Uint32(blob[14:18]); k != 7 {
		t.Errorf("expected k_default 7, got %d", k)
	}
}

func TestRestore_Corrupt(t *testing.T) {
	idx, err := Build(randomMatrix(4, 3, 1), 2)
	if err != nil {
		t.Fatal(err)
	}
	good := idx.Persist()

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"short header", good[:10]},
		{"truncated payload", good[:len(good)-9]},
		{"trailing bytes", append(append([]byte(nil), good...), 0)},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"future version", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[4:6], FormatVersion+1)
			return b
		})},
		{"zero rows", mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[10:14], 0)
			return b
		})},
		{"flipped payload bit", mutate(func(b []byte) []byte { b[headerSize+3] ^= 0x10; return b })},
		{"bad checksum", mutate(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b })},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Restore(tc.blob)
			if !errors.Is(err, domain.ErrCorruptData) {
				t.Errorf("expected corrupt data error, got %v", err)
			}
		})
	}
}
