package similarity

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"songrec/internal/domain"
)

// FormatVersion is the current persisted index format.
// Increment this when changing the layout below.
const FormatVersion = 1

// Persisted layout, little endian:
//
//	magic    [4]byte "SGRX"
//	version  uint16
//	dim      uint32
//	rows     uint32
//	kDefault uint32
//	matrix   rows*dim float64, row-major
//	checksum uint32, CRC-32 (IEEE) of every preceding byte
var magic = [4]byte{'S', 'G', 'R', 'X'}

const (
	headerSize   = 4 + 2 + 4 + 4 + 4
	checksumSize = 4
)

// Persist serializes the index, including the full trained matrix.
func (x *Index) Persist() []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(x.rows)*x.dim*8 + checksumSize)

	buf.Write(magic[:])
	_ = binary.Write(&buf, binary.LittleEndian, uint16(FormatVersion))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(x.dim))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(x.rows)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(x.kDefault))

	var word [8]byte
	for _, r := range x.rows {
		for _, v := range r {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			buf.Write(word[:])
		}
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	_ = binary.Write(&buf, binary.LittleEndian, sum)
	return buf.Bytes()
}

// Restore parses a blob written by Persist. Any malformed, truncated or
// incompatible blob yields a *domain.CorruptDataError.
func Restore(blob []byte) (*Index, error) {
	if len(blob) < headerSize+checksumSize {
		return nil, domain.NewCorruptDataError(fmt.Sprintf("blob too short (%d bytes)", len(blob)), nil)
	}
	if !bytes.Equal(blob[:4], magic[:]) {
		return nil, domain.NewCorruptDataError("bad magic", nil)
	}

	version := binary.LittleEndian.Uint16(blob[4:6])
	if version != FormatVersion {
		return nil, domain.NewCorruptDataError(fmt.Sprintf("unsupported format version %d (want %d)", version, FormatVersion), nil)
	}

	dim := binary.LittleEndian.Uint32(blob[6:10])
	rows := binary.LittleEndian.Uint32(blob[10:14])
	kDefault := binary.LittleEndian.Uint32(blob[14:18])
	if dim == 0 || rows == 0 || kDefault == 0 {
		return nil, domain.NewCorruptDataError(fmt.Sprintf("invalid header dim=%d rows=%d k=%d", dim, rows, kDefault), nil)
	}

	want := uint64(headerSize) + uint64(dim)*uint64(rows)*8 + checksumSize
	if uint64(len(blob)) != want {
		return nil, domain.NewCorruptDataError(fmt.Sprintf("size %d does not match header (want %d)", len(blob), want), nil)
	}

	body := blob[:len(blob)-checksumSize]
	stored := binary.LittleEndian.Uint32(blob[len(blob)-checksumSize:])
	if crc32.ChecksumIEEE(body) != stored {
		return nil, domain.NewCorruptDataError("checksum mismatch", nil)
	}

	matrix := make([][]float64, rows)
	off := headerSize
	for i := range matrix {
		r := make([]float64, dim)
		for j := range r {
			v := math.Float64frombits(binary.LittleEndian.Uint64(blob[off : off+8]))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.NewCorruptDataError(fmt.Sprintf("non-finite value at row %d", i), nil)
			}
			r[j] = v
			off += 8
		}
		matrix[i] = r
	}

	return newIndex(int(dim), int(kDefault), matrix), nil
}
