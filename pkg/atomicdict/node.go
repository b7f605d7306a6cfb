package atomicdict

// Node layout, one 64-bit word per index-ring slot:
//
//	+-----------------+---------+
//	|   entry_index    |   tag   |
//	+-----------------+---------+
//	   logSize bits     64-logSize bits
//
// entry_index occupies the high logSize bits, tag the low 64-logSize bits.
// entry_index == 0 is never a valid payload (page entry 0 is permanently
// reserved, see reservation.go), so a raw-zero word unambiguously means
// "empty". A node whose tag is all-ones (tagMask) is an index-level
// tombstone.
const nodeWordBits = 64

// tagMask returns the all-ones mask covering the tag bits for a ring of the
// given log2 size.
func tagMask(logSize uint8) uint64 {
	return (1 << (nodeWordBits - uint(logSize))) - 1
}

// tombstoneWord is the raw encoding of an index-level tombstone: tag bits
// all set, entry_index zero.
func tombstoneWord(logSize uint8) uint64 {
	return tagMask(logSize)
}

// node is the decoded form of an index-ring slot.
type node struct {
	entryIndex uint64
	tag        uint64
}

// encode packs a node back into its raw 64-bit word.
func (n node) encode(logSize uint8) uint64 {
	return (n.entryIndex << (nodeWordBits - uint(logSize))) | (n.tag & tagMask(logSize))
}

// decodeNode unpacks a raw index-ring word.
func decodeNode(raw uint64, logSize uint8) node {
	return node{
		entryIndex: raw >> (nodeWordBits - uint(logSize)),
		tag:        raw & tagMask(logSize),
	}
}

func isEmptyWord(raw uint64) bool {
	return raw == 0
}

func isTombstoneWord(raw uint64, logSize uint8) bool {
	return raw == tombstoneWord(logSize)
}
