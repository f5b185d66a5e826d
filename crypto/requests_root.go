package crypto

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// RequestsRoot computes the Merkle root committing to an ordered list of
// request identifiers. Both the guest program and the admission state machine
// use it, so the two sides agree on one 32-byte commitment.
//
// Leaves are Keccak256 of the 8-byte little-endian id zero-padded to 32 bytes.
// Interior nodes are Keccak256(left || right). A node without a sibling is
// promoted to the next level unchanged. The empty list maps to the zero hash,
// which is a sentinel and not a commitment.
func RequestsRoot(ids []uint64) common.Hash {
	if len(ids) == 0 {
		return common.Hash{}
	}
	level := make([][32]byte, len(ids))
	for i, id := range ids {
		level[i] = requestLeaf(id)
	}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return common.Hash(level[0])
}

func requestLeaf(id uint64) [32]byte {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:8], id)
	var leaf [32]byte
	copy(leaf[:], Keccak256(buf[:]))
	return leaf
}

func hashPair(left, right [32]byte) [32]byte {
	var node [32]byte
	copy(node[:], Keccak256(left[:], right[:]))
	return node
}
