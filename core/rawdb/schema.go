package rawdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Key prefixes for the admission schema.
var (
	aggregatorPrefix = []byte("a") // a + address -> aggregator record RLP
	batchPrefix      = []byte("b") // b + batch id (8 bytes BE) -> batch record RLP
	commitmentPrefix = []byte("p") // p + commitment hash -> batch id (8 bytes BE)
	proofHashPrefix  = []byte("h") // h + proof bytes hash -> batch id (8 bytes BE)
	verifiedPrefix   = []byte("v") // v + request id (8 bytes BE) -> verified request RLP

	totalProofsKey     = []byte("tp") // -> total proofs admitted (8 bytes BE)
	totalSignaturesKey = []byte("ts") // -> total signatures admitted (8 bytes BE)
)

// encodeUint64 encodes n as an 8-byte big-endian value so that numeric keys
// sort in numeric order.
func encodeUint64(n uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, n)
	return enc
}

// aggregatorKey = aggregatorPrefix + address
func aggregatorKey(addr common.Address) []byte {
	return append(append([]byte{}, aggregatorPrefix...), addr[:]...)
}

// batchKey = batchPrefix + id
func batchKey(id uint64) []byte {
	return append(append([]byte{}, batchPrefix...), encodeUint64(id)...)
}

// commitmentKey = commitmentPrefix + hash
func commitmentKey(hash common.Hash) []byte {
	return append(append([]byte{}, commitmentPrefix...), hash[:]...)
}

// proofHashKey = proofHashPrefix + hash
func proofHashKey(hash common.Hash) []byte {
	return append(append([]byte{}, proofHashPrefix...), hash[:]...)
}

// verifiedKey = verifiedPrefix + request id
func verifiedKey(id uint64) []byte {
	return append(append([]byte{}, verifiedPrefix...), encodeUint64(id)...)
}
