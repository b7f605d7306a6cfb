package atomicdict

import (
	"encoding/binary"
	"hash/crc32"
)

// rehash mixes a key's hash into a fresh 64-bit value used to derive both
// the probe start (distance0) and, independently, the stored tag. It is a
// straight port of cereggii's REHASH macro: two 32-bit CRC32C computations
// of the same 64-bit input, seeded differently, concatenated into the two
// halves of the result.
//
// The seeds are arbitrary fixed constants; all that matters is that the two
// halves mix independently. CRC32C state is 32 bits, so each seed is
// truncated to its low 32 bits before use, matching the x86 crc32
// instruction's behavior.
const (
	rehashLowerSeed = uint64(7467732452331123588)
	rehashUpperSeed = uint64(12923598712359872066)
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func crc32cHalf(seed uint32, x uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], x)
	return crc32.Update(seed, crc32cTable, buf[:])
}

// rehash is the REHASH(x) macro: a bijective-ish mix used before deriving
// distance0 and before truncating to a tag.
func rehash(x uint64) uint64 {
	lower := crc32cHalf(uint32(rehashLowerSeed&0xffffffff), x)
	upper := crc32cHalf(uint32(rehashUpperSeed&0xffffffff), x)
	return uint64(lower) | uint64(upper)<<32
}

// distance0Of computes the home slot for a hash on a ring of 1<<logSize
// slots: the top logSize bits of rehash(hash).
func distance0Of(hash uint64, logSize uint8) uint64 {
	return rehash(hash) >> (nodeWordBits - uint(logSize))
}

// tagOf returns the tag stored alongside an entry_index for a given raw
// (un-rehashed) hash: the hash truncated to the tag width. Unlike
// distance0Of, the tag is derived from the raw hash, not from rehash(hash)
// -- this is deliberate in the original design, so that distance0 and tag
// are not simply two slices of the same mixed value.
func tagOf(hash uint64, logSize uint8) uint64 {
	return hash & tagMask(logSize)
}
