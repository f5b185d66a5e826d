package admission

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tesserax/reml/core/rawdb"
)

// Read accessors return plain values; store errors are logged and read as
// absent.

// IsRequestVerified reports whether id was part of an admitted batch.
func (s *State) IsRequestVerified(id uint64) bool {
	has, err := rawdb.HasVerifiedRequest(s.db, id)
	if err != nil {
		s.log.Error("read verified request", "id", id, "err", err)
		return false
	}
	return has
}

// VerificationInfo returns the batch and block that first admitted id.
func (s *State) VerificationInfo(id uint64) (VerificationInfo, bool) {
	var info VerificationInfo
	data, err := rawdb.ReadVerifiedRequest(s.db, id)
	if !s.found(err, "read verified request") {
		return info, false
	}
	if err := decodeRecord(data, &info); err != nil {
		s.log.Error("decode verified request", "id", id, "err", err)
		return VerificationInfo{}, false
	}
	return info, true
}

// IsAggregator reports whether account is a registered, active aggregator.
func (s *State) IsAggregator(account common.Address) bool {
	info, ok := s.Aggregator(account)
	return ok && info.Active
}

// Aggregator returns the registry record of account.
func (s *State) Aggregator(account common.Address) (AggregatorInfo, bool) {
	info, err := s.readAggregator(account)
	if err != nil {
		if !errors.Is(err, ErrAggregatorNotFound) {
			s.log.Error("read aggregator", "account", account, "err", err)
		}
		return AggregatorInfo{}, false
	}
	return *info, true
}

// Aggregators returns every registered aggregator, active or not, keyed by
// account.
func (s *State) Aggregators() map[common.Address]AggregatorInfo {
	out := make(map[common.Address]AggregatorInfo)
	it := rawdb.IterateAggregators(s.db)
	defer it.Release()
	for it.Next() {
		var info AggregatorInfo
		if err := decodeRecord(it.Value(), &info); err != nil {
			s.log.Error("decode aggregator", "err", err)
			continue
		}
		out[rawdb.AggregatorAddress(it.Key())] = info
	}
	if err := it.Error(); err != nil {
		s.log.Error("iterate aggregators", "err", err)
	}
	return out
}

// BatchRecord returns the full record of an admitted batch.
func (s *State) BatchRecord(id uint64) (BatchRecord, bool) {
	var rec BatchRecord
	data, err := rawdb.ReadBatchRecord(s.db, id)
	if !s.found(err, "read batch record") {
		return rec, false
	}
	if err := decodeRecord(data, &rec); err != nil {
		s.log.Error("decode batch record", "batch", id, "err", err)
		return BatchRecord{}, false
	}
	return rec, true
}

// BatchInfo returns the root, signature count and admission block of a
// batch, or the zero value if the batch is unknown.
func (s *State) BatchInfo(id uint64) BatchInfo {
	rec, ok := s.BatchRecord(id)
	if !ok {
		return BatchInfo{}
	}
	return BatchInfo{
		RequestsRoot:   rec.RequestsRoot,
		SignatureCount: rec.SignatureCount,
		VerifiedAt:     rec.VerifiedAt,
	}
}

// CommitmentBatch returns the batch that admitted a proof commitment.
func (s *State) CommitmentBatch(commitment common.Hash) (uint64, bool) {
	id, err := rawdb.ReadCommitment(s.db, commitment)
	if !s.found(err, "read commitment") {
		return 0, false
	}
	return id, true
}

// TotalProofsVerified returns the number of admitted proofs.
func (s *State) TotalProofsVerified() uint64 {
	n, err := rawdb.ReadTotalProofs(s.db)
	if err != nil {
		s.log.Error("read total proofs", "err", err)
	}
	return n
}

// TotalSignaturesVerified returns the number of signatures across all
// admitted proofs.
func (s *State) TotalSignaturesVerified() uint64 {
	n, err := rawdb.ReadTotalSignatures(s.db)
	if err != nil {
		s.log.Error("read total signatures", "err", err)
	}
	return n
}

func (s *State) found(err error, op string) bool {
	if err == nil {
		return true
	}
	if !errors.Is(err, rawdb.ErrNotFound) {
		s.log.Error(op, "err", err)
	}
	return false
}
