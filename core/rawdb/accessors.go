package rawdb

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// --- Aggregator Accessors ---

// WriteAggregator stores an aggregator record.
func WriteAggregator(db KeyValueWriter, addr common.Address, data []byte) error {
	return db.Put(aggregatorKey(addr), data)
}

// ReadAggregator retrieves an aggregator record.
func ReadAggregator(db KeyValueReader, addr common.Address) ([]byte, error) {
	return db.Get(aggregatorKey(addr))
}

// HasAggregator checks if an aggregator record exists.
func HasAggregator(db KeyValueReader, addr common.Address) (bool, error) {
	return db.Has(aggregatorKey(addr))
}

// IterateAggregators returns an iterator over all aggregator records. Keys
// carry the prefix; AggregatorAddress extracts the account.
func IterateAggregators(db Iteratee) Iterator {
	return db.NewIterator(aggregatorPrefix)
}

// AggregatorAddress extracts the account from an aggregator key.
func AggregatorAddress(key []byte) common.Address {
	return common.BytesToAddress(key[len(aggregatorPrefix):])
}

// --- Batch Accessors ---

// WriteBatchRecord stores the record of an admitted batch.
func WriteBatchRecord(db KeyValueWriter, id uint64, data []byte) error {
	return db.Put(batchKey(id), data)
}

// ReadBatchRecord retrieves the record of an admitted batch.
func ReadBatchRecord(db KeyValueReader, id uint64) ([]byte, error) {
	return db.Get(batchKey(id))
}

// HasBatchRecord checks if a batch id has been used.
func HasBatchRecord(db KeyValueReader, id uint64) (bool, error) {
	return db.Has(batchKey(id))
}

// --- Commitment Accessors ---

// WriteCommitment marks a proof commitment as admitted by batch id.
func WriteCommitment(db KeyValueWriter, hash common.Hash, batchID uint64) error {
	return db.Put(commitmentKey(hash), encodeUint64(batchID))
}

// ReadCommitment returns the batch id that admitted a commitment.
func ReadCommitment(db KeyValueReader, hash common.Hash) (uint64, error) {
	data, err := db.Get(commitmentKey(hash))
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, ErrNotFound
	}
	return binary.BigEndian.Uint64(data), nil
}

// HasCommitment checks if a proof commitment has been admitted.
func HasCommitment(db KeyValueReader, hash common.Hash) (bool, error) {
	return db.Has(commitmentKey(hash))
}

// WriteProofHash marks proof bytes, by hash, as admitted by batch id.
func WriteProofHash(db KeyValueWriter, hash common.Hash, batchID uint64) error {
	return db.Put(proofHashKey(hash), encodeUint64(batchID))
}

// HasProofHash checks if proof bytes with this hash have been admitted.
func HasProofHash(db KeyValueReader, hash common.Hash) (bool, error) {
	return db.Has(proofHashKey(hash))
}

// --- Verified Request Accessors ---

// WriteVerifiedRequest stores a verified request record.
func WriteVerifiedRequest(db KeyValueWriter, id uint64, data []byte) error {
	return db.Put(verifiedKey(id), data)
}

// ReadVerifiedRequest retrieves a verified request record.
func ReadVerifiedRequest(db KeyValueReader, id uint64) ([]byte, error) {
	return db.Get(verifiedKey(id))
}

// HasVerifiedRequest checks if a request id has been recorded as verified.
func HasVerifiedRequest(db KeyValueReader, id uint64) (bool, error) {
	return db.Has(verifiedKey(id))
}

// --- Counters ---

func readCounter(db KeyValueReader, key []byte) (uint64, error) {
	data, err := db.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, ErrNotFound
	}
	return binary.BigEndian.Uint64(data), nil
}

// ReadTotalProofs returns the number of admitted proofs.
func ReadTotalProofs(db KeyValueReader) (uint64, error) {
	return readCounter(db, totalProofsKey)
}

// WriteTotalProofs stores the number of admitted proofs.
func WriteTotalProofs(db KeyValueWriter, n uint64) error {
	return db.Put(totalProofsKey, encodeUint64(n))
}

// ReadTotalSignatures returns the number of admitted signatures.
func ReadTotalSignatures(db KeyValueReader) (uint64, error) {
	return readCounter(db, totalSignaturesKey)
}

// WriteTotalSignatures stores the number of admitted signatures.
func WriteTotalSignatures(db KeyValueWriter, n uint64) error {
	return db.Put(totalSignaturesKey, encodeUint64(n))
}
