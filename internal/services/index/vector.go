package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// encodeVector packs v as little-endian float32 values
func encodeVector(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(f)))
	}
	return buf
}

// decodeVector unpacks little-endian float32 values
func decodeVector(b []byte) ([]float64, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector length %d is not a multiple of 4", len(b))
	}
	v := make([]float64, len(b)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}
	return v, nil
}

// cosineDistance returns 1 - cosine similarity. Mismatched or zero vectors
// are maximally distant.
func cosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// topK sorts matches by ascending distance, ties by id, and keeps the first k
func topK(matches []Match, k int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
