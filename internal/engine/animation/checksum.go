package animation

import (
	"encoding/binary"
	gomath "math"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// PoseChecksum hashes matrices bit for bit. Two poses share a checksum only
// when every element is identical.
func PoseChecksum(matrices []math.Mat4) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for i := range matrices {
		for _, f := range matrices[i] {
			binary.LittleEndian.PutUint32(buf[:], gomath.Float32bits(f))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}
