package aggregator

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/log"
)

// fakeProver records the batches it is asked to prove. When gate is set each
// Prove waits for a value on it.
type fakeProver struct {
	gate chan struct{}

	mu      sync.Mutex
	batches []*types.BatchInput
}

func (f *fakeProver) Prove(ctx context.Context, in *types.BatchInput) (*types.ProofBundle, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.batches = append(f.batches, in)
	f.mu.Unlock()

	ids := make([]uint64, 0, len(in.Requests))
	for _, r := range in.Requests {
		ids = append(ids, r.RequestID)
	}
	return &types.ProofBundle{Proof: []byte{0x01}, Output: types.NewBatchOutput(in.BatchID, ids)}, nil
}

func (f *fakeProver) proved() []*types.BatchInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.BatchInput(nil), f.batches...)
}

// sizedRequest has valid key and signature sizes but no real signature.
func sizedRequest(id uint64) *types.SignatureRequest {
	return types.NewSignatureRequest(common.Hash{byte(id)},
		make([]byte, types.MLDSAPublicKeySize),
		make([]byte, types.MLDSASignatureSize),
		id)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.BatchSize = 3
	cfg.MaxProvers = 2
	cfg.MaxPending = 10
	cfg.OutputDir = t.TempDir()
	return cfg
}

func newTestCollector(t *testing.T, cfg Config, p BatchProver) *Collector {
	t.Helper()
	c, err := NewCollector(cfg, p, log.Discard())
	require.NoError(t, err)
	return c
}

func batchIDs(in *types.BatchInput) []uint64 {
	ids := make([]uint64, len(in.Requests))
	for i, r := range in.Requests {
		ids[i] = r.RequestID
	}
	return ids
}
