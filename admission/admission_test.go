package admission

import (
	"context"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tesserax/reml/core/rawdb"
	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/prover"
)

var (
	aggA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	aggB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestMain(m *testing.M) {
	log.SetDefault(log.Discard())
	os.Exit(m.Run())
}

type testEnv struct {
	state  *State
	db     *rawdb.MemoryDB
	events *EventLog
}

func newTestEnv(t *testing.T, cfg Config, checker ProofChecker) *testEnv {
	t.Helper()
	db := rawdb.NewMemoryDB()
	events := NewEventLog()
	s, err := New(db, cfg, checker, events)
	require.NoError(t, err)
	s.SetBlockNumber(1)
	require.NoError(t, s.RegisterAggregator(Root(), aggA))
	return &testEnv{state: s, db: db, events: events}
}

func proveBatch(t *testing.T, mock bool, batchID uint64, reqs []*types.SignatureRequest) *types.ProofBundle {
	t.Helper()
	p, err := prover.New(prover.Config{Mock: mock, Logger: log.Discard()})
	require.NoError(t, err)
	bundle, err := p.Prove(context.Background(), types.NewBatchInput(reqs, batchID))
	require.NoError(t, err)
	return bundle
}

// scenarioA proves ten valid requests with ids 0..9 as batch 1.
func scenarioA(t *testing.T) *ProofSubmission {
	t.Helper()
	return SubmissionFromBundle(proveBatch(t, false, 1, prover.GenerateTestBatch(10, false)))
}

// cloneSubmission deep-copies sub so tests can tamper with it.
func cloneSubmission(sub *ProofSubmission) *ProofSubmission {
	out := *sub.PublicValues
	out.VerifiedRequestIDs = append([]uint64(nil), sub.PublicValues.VerifiedRequestIDs...)
	return &ProofSubmission{
		BatchID:      sub.BatchID,
		Proof:        common.CopyBytes(sub.Proof),
		PublicValues: &out,
		VKeyHash:     sub.VKeyHash,
	}
}

func lastEvent(t *testing.T, events *EventLog) Event {
	t.Helper()
	ev, ok := events.Last()
	require.True(t, ok)
	return ev
}

func TestScenarioAdmit(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), nil)
	env.state.SetBlockNumber(7)
	sub := scenarioA(t)

	require.NoError(t, env.state.SubmitProof(Signed(aggA), sub))

	require.True(t, env.state.IsRequestVerified(5))
	require.False(t, env.state.IsRequestVerified(10))
	info, ok := env.state.VerificationInfo(5)
	require.True(t, ok)
	require.Equal(t, VerificationInfo{BatchID: 1, Block: 7}, info)

	agg, ok := env.state.Aggregator(aggA)
	require.True(t, ok)
	require.Equal(t, uint64(1), agg.ProofsSubmitted)
	require.Equal(t, uint64(1), agg.RegisteredAt)
	require.True(t, agg.Active)

	rec, ok := env.state.BatchRecord(1)
	require.True(t, ok)
	require.Equal(t, aggA, rec.Aggregator)
	require.Equal(t, uint64(7), rec.VerifiedAt)
	require.Equal(t, uint32(10), rec.SignatureCount)
	require.Equal(t, sub.PublicValues.RequestsRoot, rec.RequestsRoot)
	require.Equal(t, ProofCommitment(sub), rec.ProofCommitment)

	id, ok := env.state.CommitmentBatch(ProofCommitment(sub))
	require.True(t, ok)
	require.Equal(t, uint64(1), id)

	require.Equal(t, BatchInfo{
		RequestsRoot:   sub.PublicValues.RequestsRoot,
		SignatureCount: 10,
		VerifiedAt:     7,
	}, env.state.BatchInfo(1))
	require.Equal(t, BatchInfo{}, env.state.BatchInfo(2))

	require.Equal(t, uint64(1), env.state.TotalProofsVerified())
	require.Equal(t, uint64(10), env.state.TotalSignaturesVerified())

	ev := lastEvent(t, env.events)
	require.Equal(t, EventProofVerified, ev.Kind)
	require.Equal(t, uint64(1), ev.BatchID)
	require.Equal(t, aggA, ev.Aggregator)
	require.Equal(t, uint32(10), ev.SignatureCount)
	require.Equal(t, uint64(7), ev.Block)
}

func TestScenarioReplay(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), nil)
	sub := scenarioA(t)
	require.NoError(t, env.state.SubmitProof(Signed(aggA), sub))

	keys := env.db.Len()
	env.state.SetBlockNumber(2)
	err := env.state.SubmitProof(Signed(aggA), cloneSubmission(sub))
	require.ErrorIs(t, err, ErrProofAlreadyUsed)

	ev := lastEvent(t, env.events)
	require.Equal(t, EventProofRejected, ev.Kind)
	require.Equal(t, ReasonProofAlreadyUsed, ev.Reason)

	require.Equal(t, keys, env.db.Len())
	require.Equal(t, uint64(1), env.state.TotalProofsVerified())
	require.Equal(t, uint64(10), env.state.TotalSignaturesVerified())
	agg, _ := env.state.Aggregator(aggA)
	require.Equal(t, uint64(1), agg.ProofsSubmitted)
	require.Equal(t, uint64(1), env.state.BatchInfo(1).VerifiedAt)
}

func TestReplayUnderOtherBatchID(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), nil)
	sub := scenarioA(t)
	require.NoError(t, env.state.SubmitProof(Signed(aggA), sub))

	moved := cloneSubmission(sub)
	moved.BatchID = 99
	moved.PublicValues.BatchID = 99
	require.NotEqual(t, ProofCommitment(sub), ProofCommitment(moved))

	err := env.state.SubmitProof(Signed(aggA), moved)
	require.ErrorIs(t, err, ErrProofAlreadyUsed)
	_, ok := env.state.BatchRecord(99)
	require.False(t, ok)
	require.Equal(t, ReasonProofAlreadyUsed, lastEvent(t, env.events).Reason)
}

func TestBatchIDReuse(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), nil)
	require.NoError(t, env.state.SubmitProof(Signed(aggA), scenarioA(t)))

	// A fresh proof for a different request set under the same batch id.
	other := SubmissionFromBundle(proveBatch(t, false, 1, prover.GenerateTestBatch(4, false)))
	err := env.state.SubmitProof(Signed(aggA), other)
	require.ErrorIs(t, err, ErrBatchAlreadyVerified)
	require.Equal(t, ReasonBatchAlreadyVerified, lastEvent(t, env.events).Reason)
	require.Equal(t, uint32(10), env.state.BatchInfo(1).SignatureCount)
}

func TestDuplicateRequestIDsFirstWins(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), nil)
	env.state.SetBlockNumber(5)
	require.NoError(t, env.state.SubmitProof(Signed(aggA), scenarioA(t)))

	reqs := []*types.SignatureRequest{
		prover.NewTestSigner(5).Request(prover.TestBatchMessage(105), 5),
		prover.NewTestSigner(20).Request(prover.TestBatchMessage(120), 20),
		prover.NewTestSigner(21).Request(prover.TestBatchMessage(121), 20),
	}
	sub := SubmissionFromBundle(proveBatch(t, false, 2, reqs))
	require.Equal(t, []uint64{5, 20, 20}, sub.PublicValues.VerifiedRequestIDs)

	env.state.SetBlockNumber(6)
	require.NoError(t, env.state.SubmitProof(Signed(aggA), sub))

	info, ok := env.state.VerificationInfo(5)
	require.True(t, ok)
	require.Equal(t, VerificationInfo{BatchID: 1, Block: 5}, info)
	info, ok = env.state.VerificationInfo(20)
	require.True(t, ok)
	require.Equal(t, VerificationInfo{BatchID: 2, Block: 6}, info)

	require.Equal(t, uint64(2), env.state.TotalProofsVerified())
	require.Equal(t, uint64(13), env.state.TotalSignaturesVerified())
}

func TestPebbleBackend(t *testing.T) {
	dir := t.TempDir()
	db, err := rawdb.OpenPebble(dir, rawdb.DefaultPebbleOptions())
	require.NoError(t, err)

	s, err := New(db, DefaultConfig(), nil, nil)
	require.NoError(t, err)
	s.SetBlockNumber(3)
	require.NoError(t, s.RegisterAggregator(Root(), aggA))
	sub := scenarioA(t)
	require.NoError(t, s.SubmitProof(Signed(aggA), sub))
	require.NoError(t, db.Close())

	db, err = rawdb.OpenPebble(dir, rawdb.DefaultPebbleOptions())
	require.NoError(t, err)
	defer db.Close()
	s, err = New(db, DefaultConfig(), nil, nil)
	require.NoError(t, err)

	require.True(t, s.IsAggregator(aggA))
	require.True(t, s.IsRequestVerified(9))
	require.Equal(t, uint32(10), s.BatchInfo(1).SignatureCount)
	require.Equal(t, uint64(1), s.TotalProofsVerified())
	require.ErrorIs(t, s.SubmitProof(Signed(aggA), sub), ErrProofAlreadyUsed)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil, DefaultConfig(), nil, nil)
	require.ErrorIs(t, err, ErrNilDatabase)

	cfg := DefaultConfig()
	cfg.MaxProofSize = 0
	_, err = New(rawdb.NewMemoryDB(), cfg, nil, nil)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxVerifiedRequests = -1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ProtocolVersion = 0
	require.Error(t, cfg.Validate())
}
