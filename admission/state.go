package admission

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tesserax/reml/core/rawdb"
	"github.com/tesserax/reml/crypto"
	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/metrics"
)

// Admission errors.
var (
	ErrBadOrigin                   = errors.New("admission: bad origin")
	ErrNotAuthorized               = errors.New("admission: not an active aggregator")
	ErrAggregatorAlreadyRegistered = errors.New("admission: aggregator already registered")
	ErrAggregatorNotFound          = errors.New("admission: aggregator not found")
	ErrProofVerificationFailed     = errors.New("admission: proof verification failed")
	ErrInvalidVKeyHash             = errors.New("admission: invalid verification key hash")
	ErrBatchAlreadyVerified        = errors.New("admission: batch already verified")
	ErrProofTooSmall               = errors.New("admission: proof too small")
	ErrProofTooLarge               = errors.New("admission: proof too large")
	ErrInvalidPublicValues         = errors.New("admission: invalid public values")
	ErrProofAlreadyUsed            = errors.New("admission: proof already used")
	ErrInvalidMerkleRoot           = errors.New("admission: invalid merkle root")
	ErrTooManyRequests             = errors.New("admission: too many verified requests")
	ErrNilDatabase                 = errors.New("admission: nil database")
)

// State is the proof-admission state machine. Transitions are serialized;
// each one observes a consistent view of the store and commits its writes
// in a single batch.
type State struct {
	db      rawdb.Database
	cfg     Config
	checker ProofChecker
	sink    EventSink
	log     *log.Logger

	mu    sync.Mutex
	block uint64
}

// New creates a state machine over db. A nil checker uses
// StructuralChecker and a nil sink drops events.
func New(db rawdb.Database, cfg Config, checker ProofChecker, sink EventSink) (*State, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if checker == nil {
		checker = StructuralChecker{}
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &State{
		db:      db,
		cfg:     cfg,
		checker: checker,
		sink:    sink,
		log:     log.Default().Module("admission"),
	}, nil
}

// SetBlockNumber sets the block that subsequent transitions are recorded at.
func (s *State) SetBlockNumber(n uint64) {
	s.mu.Lock()
	s.block = n
	s.mu.Unlock()
}

// BlockNumber returns the current block.
func (s *State) BlockNumber() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.block
}

// RegisterAggregator authorizes account to submit proofs. Root only.
func (s *State) RegisterAggregator(origin Origin, account common.Address) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	has, err := rawdb.HasAggregator(s.db, account)
	if err != nil {
		return fmt.Errorf("admission: read aggregator: %w", err)
	}
	if has {
		return ErrAggregatorAlreadyRegistered
	}
	info := AggregatorInfo{RegisteredAt: s.block, Active: true}
	if err := s.writeAggregator(s.db, account, &info); err != nil {
		return err
	}
	s.log.Info("aggregator registered", "account", account, "block", s.block)
	s.sink.Emit(Event{Kind: EventAggregatorRegistered, Block: s.block, Aggregator: account})
	return nil
}

// DeactivateAggregator revokes the submission right of account. Earlier
// submissions stay admitted. Root only.
func (s *State) DeactivateAggregator(origin Origin, account common.Address) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.readAggregator(account)
	if err != nil {
		return err
	}
	info.Active = false
	if err := s.writeAggregator(s.db, account, info); err != nil {
		return err
	}
	s.log.Info("aggregator deactivated", "account", account, "block", s.block)
	s.sink.Emit(Event{Kind: EventAggregatorDeactivated, Block: s.block, Aggregator: account})
	return nil
}

// ProofCommitment is the replay key of a submission:
// Blake2b256(vkey_hash || batch_id LE || requests_root || Blake2b256(proof)).
func ProofCommitment(sub *ProofSubmission) common.Hash {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], sub.BatchID)
	var root common.Hash
	if sub.PublicValues != nil {
		root = sub.PublicValues.RequestsRoot
	}
	proofHash := crypto.Blake2b256(sub.Proof)
	return common.Hash(crypto.Blake2b256(sub.VKeyHash[:], id[:], root[:], proofHash[:]))
}

// SubmitProof admits a batch proof signed by an active aggregator. Checks
// run in order and the first failure aborts without changing state.
// Rejections after authorization emit ProofRejected.
func (s *State) SubmitProof(origin Origin, sub *ProofSubmission) error {
	account, ok := origin.Account()
	if !ok {
		return ErrBadOrigin
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.readAggregator(account)
	if errors.Is(err, ErrAggregatorNotFound) {
		return ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	if !info.Active {
		return ErrNotAuthorized
	}
	if sub == nil || sub.PublicValues == nil {
		return ErrInvalidPublicValues
	}
	out := sub.PublicValues
	reject := func(reason RejectReason, err error) error {
		metrics.AdmissionRejected.Inc()
		s.log.Warn("proof rejected", "batch", sub.BatchID, "aggregator", account,
			"reason", reason.String(), "err", err)
		s.sink.Emit(Event{
			Kind:       EventProofRejected,
			Block:      s.block,
			Aggregator: account,
			BatchID:    sub.BatchID,
			Reason:     reason,
		})
		return err
	}

	switch {
	case len(sub.Proof) == 0:
		return reject(ReasonInvalidProofFormat, ErrProofTooSmall)
	case len(sub.Proof) > s.cfg.MaxProofSize:
		return reject(ReasonInvalidProofFormat, fmt.Errorf("%w: %d bytes", ErrProofTooLarge, len(sub.Proof)))
	case len(out.VerifiedRequestIDs) > s.cfg.MaxVerifiedRequests:
		return reject(ReasonInvalidPublicValues, fmt.Errorf("%w: %d", ErrTooManyRequests, len(out.VerifiedRequestIDs)))
	}

	commitment := ProofCommitment(sub)
	proofHash := common.Hash(crypto.Blake2b256(sub.Proof))
	used, err := s.proofUsed(commitment, proofHash)
	if err != nil {
		return err
	}

	seen, err := rawdb.HasBatchRecord(s.db, sub.BatchID)
	if err != nil {
		return fmt.Errorf("admission: read batch: %w", err)
	}
	if seen {
		if used {
			return reject(ReasonProofAlreadyUsed, ErrProofAlreadyUsed)
		}
		return reject(ReasonBatchAlreadyVerified, ErrBatchAlreadyVerified)
	}

	switch {
	case out.Version != s.cfg.ProtocolVersion:
		return reject(ReasonInvalidPublicValues, fmt.Errorf("%w: version %d", ErrInvalidPublicValues, out.Version))
	case out.ChainID != s.cfg.ChainTag:
		return reject(ReasonInvalidPublicValues, fmt.Errorf("%w: chain %d", ErrInvalidPublicValues, out.ChainID))
	case out.BatchID != sub.BatchID:
		return reject(ReasonInvalidPublicValues, fmt.Errorf("%w: batch %d, claimed %d", ErrInvalidPublicValues, out.BatchID, sub.BatchID))
	}

	if s.cfg.ExpectedVKeyHash != (common.Hash{}) && sub.VKeyHash != s.cfg.ExpectedVKeyHash {
		return reject(ReasonInvalidVKeyHash, ErrInvalidVKeyHash)
	}

	if used {
		return reject(ReasonProofAlreadyUsed, ErrProofAlreadyUsed)
	}

	if crypto.RequestsRoot(out.VerifiedRequestIDs) != out.RequestsRoot {
		return reject(ReasonInvalidMerkleRoot, ErrInvalidMerkleRoot)
	}

	publicValues, err := out.Encode()
	if err != nil {
		return reject(ReasonInvalidPublicValues, fmt.Errorf("%w: %w", ErrInvalidPublicValues, err))
	}
	if err := s.checker.Check(sub, publicValues); err != nil {
		if errors.Is(err, ErrProofTooSmall) {
			return reject(ReasonInvalidProofFormat, err)
		}
		return reject(ReasonProofVerificationFailed, fmt.Errorf("%w: %w", ErrProofVerificationFailed, err))
	}

	recorded, err := s.commit(account, info, sub, commitment, proofHash)
	if err != nil {
		return err
	}

	metrics.AdmissionAccepted.Inc()
	metrics.AdmissionRecorded.Add(int64(recorded))
	s.log.Info("proof verified", "batch", sub.BatchID, "aggregator", account,
		"signatures", out.VerifiedCount, "recorded", recorded, "block", s.block)
	s.sink.Emit(Event{
		Kind:           EventProofVerified,
		Block:          s.block,
		Aggregator:     account,
		BatchID:        sub.BatchID,
		SignatureCount: out.VerifiedCount,
		RequestsRoot:   out.RequestsRoot,
	})
	return nil
}

// commit writes an admitted submission in one batch and returns the number
// of request ids recorded for the first time.
func (s *State) commit(account common.Address, info *AggregatorInfo, sub *ProofSubmission, commitment, proofHash common.Hash) (int, error) {
	out := sub.PublicValues
	b := s.db.NewBatch()

	if err := rawdb.WriteCommitment(b, commitment, sub.BatchID); err != nil {
		return 0, err
	}
	if err := rawdb.WriteProofHash(b, proofHash, sub.BatchID); err != nil {
		return 0, err
	}
	rec, err := encodeRecord(&BatchRecord{
		Aggregator:      account,
		VerifiedAt:      s.block,
		SignatureCount:  out.VerifiedCount,
		RequestsRoot:    out.RequestsRoot,
		ProofCommitment: commitment,
	})
	if err != nil {
		return 0, err
	}
	if err := rawdb.WriteBatchRecord(b, sub.BatchID, rec); err != nil {
		return 0, err
	}

	vinfo, err := encodeRecord(&VerificationInfo{BatchID: sub.BatchID, Block: s.block})
	if err != nil {
		return 0, err
	}
	recorded := 0
	seen := make(map[uint64]struct{}, len(out.VerifiedRequestIDs))
	for _, id := range out.VerifiedRequestIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		has, err := rawdb.HasVerifiedRequest(s.db, id)
		if err != nil {
			return 0, fmt.Errorf("admission: read verified request: %w", err)
		}
		if has {
			continue
		}
		if err := rawdb.WriteVerifiedRequest(b, id, vinfo); err != nil {
			return 0, err
		}
		recorded++
	}

	updated := *info
	updated.ProofsSubmitted++
	if err := s.writeAggregator(b, account, &updated); err != nil {
		return 0, err
	}

	proofs, err := rawdb.ReadTotalProofs(s.db)
	if err != nil {
		return 0, fmt.Errorf("admission: read totals: %w", err)
	}
	sigs, err := rawdb.ReadTotalSignatures(s.db)
	if err != nil {
		return 0, fmt.Errorf("admission: read totals: %w", err)
	}
	if err := rawdb.WriteTotalProofs(b, proofs+1); err != nil {
		return 0, err
	}
	if err := rawdb.WriteTotalSignatures(b, sigs+uint64(out.VerifiedCount)); err != nil {
		return 0, err
	}

	if err := b.Write(); err != nil {
		return 0, fmt.Errorf("admission: commit batch %d: %w", sub.BatchID, err)
	}
	return recorded, nil
}

func (s *State) proofUsed(commitment, proofHash common.Hash) (bool, error) {
	has, err := rawdb.HasCommitment(s.db, commitment)
	if err != nil {
		return false, fmt.Errorf("admission: read commitment: %w", err)
	}
	if has {
		return true, nil
	}
	has, err = rawdb.HasProofHash(s.db, proofHash)
	if err != nil {
		return false, fmt.Errorf("admission: read proof hash: %w", err)
	}
	return has, nil
}

func (s *State) readAggregator(account common.Address) (*AggregatorInfo, error) {
	data, err := rawdb.ReadAggregator(s.db, account)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil, ErrAggregatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("admission: read aggregator: %w", err)
	}
	info := new(AggregatorInfo)
	if err := decodeRecord(data, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *State) writeAggregator(w rawdb.KeyValueWriter, account common.Address, info *AggregatorInfo) error {
	data, err := encodeRecord(info)
	if err != nil {
		return err
	}
	return rawdb.WriteAggregator(w, account, data)
}
