package aggregator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/metrics"
	"github.com/tesserax/reml/prover"
)

// Collector errors.
var (
	ErrInvalidRequest   = errors.New("collector: invalid request")
	ErrCollectorFull    = errors.New("collector: pending buffer full")
	ErrCollectorStopped = errors.New("collector: stopped")
)

// BatchProver proves one closed batch.
type BatchProver interface {
	Prove(ctx context.Context, in *types.BatchInput) (*types.ProofBundle, error)
}

// SubmitResult describes an accepted submission.
type SubmitResult struct {
	RequestID uint64

	// Pending is the buffer size after the submission.
	Pending int

	// BatchTriggered is the id of the batch this submission closed, zero if
	// none was closed.
	BatchTriggered uint64
}

// Status is a point-in-time view of the collector.
type Status struct {
	Pending          int
	BatchSize        int
	BatchesCompleted uint64
	QueuedBatches    int
	ProofsGenerated  uint64
	ProofsFailed     uint64
	SubmitRate       float64 // accepted submissions per second, one minute average
}

// Collector buffers signature requests and closes them into batches. The
// buffer lock is held only to append a request or to take a closed batch.
// Closed batches go through a queue of capacity MaxProvers drained by
// MaxProvers workers; while the queue is full a full batch stays pending and
// is closed by a later submission or when a worker frees a slot.
type Collector struct {
	cfg    Config
	prover BatchProver
	log    *log.Logger

	mu      sync.Mutex
	pending []*types.SignatureRequest
	closed  uint64 // batches closed, also the last assigned batch id
	stopped bool

	queue chan *types.BatchInput

	generated atomic.Uint64
	failed    atomic.Uint64
}

// NewCollector creates a collector proving with p.
func NewCollector(cfg Config, p BatchProver, logger *log.Logger) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("collector: nil prover")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		cfg:     cfg,
		prover:  p,
		log:     logger.Module("collector"),
		pending: make([]*types.SignatureRequest, 0, cfg.BatchSize),
		queue:   make(chan *types.BatchInput, cfg.MaxProvers),
	}, nil
}

// Submit validates req and appends it to the pending buffer, closing a batch
// when the buffer holds BatchSize requests and the queue has room.
func (c *Collector) Submit(req *types.SignatureRequest) (SubmitResult, error) {
	if req == nil {
		metrics.CollectorRefused.Inc()
		return SubmitResult{}, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	if err := req.ValidateSizes(); err != nil {
		metrics.CollectorRefused.Inc()
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return SubmitResult{}, ErrCollectorStopped
	}
	if len(c.pending) >= c.cfg.MaxPending {
		metrics.CollectorRefused.Inc()
		return SubmitResult{}, fmt.Errorf("%w: %d requests pending", ErrCollectorFull, len(c.pending))
	}
	c.pending = append(c.pending, req)
	metrics.CollectorSubmitted.Inc()
	metrics.CollectorSubmitRate.Mark(1)

	res := SubmitResult{RequestID: req.RequestID}
	if id, ok := c.closeBatchLocked(); ok {
		res.BatchTriggered = id
	}
	res.Pending = len(c.pending)
	metrics.CollectorPending.Set(int64(res.Pending))

	c.log.Debug("request received", "id", req.RequestID, "pending", res.Pending, "batch_size", c.cfg.BatchSize)
	return res, nil
}

// closeBatchLocked takes the oldest BatchSize requests if the buffer is full
// enough and the queue has room. c.mu must be held.
func (c *Collector) closeBatchLocked() (uint64, bool) {
	if c.stopped || len(c.pending) < c.cfg.BatchSize {
		return 0, false
	}
	id := c.closed + 1
	batch := types.NewBatchInput(c.pending[:c.cfg.BatchSize:c.cfg.BatchSize], id)
	select {
	case c.queue <- batch:
	default:
		c.log.Warn("proving queue full, batch kept pending", "pending", len(c.pending), "queued", len(c.queue))
		return 0, false
	}
	c.closed = id

	rest := make([]*types.SignatureRequest, len(c.pending)-c.cfg.BatchSize, max(c.cfg.BatchSize, len(c.pending)-c.cfg.BatchSize))
	copy(rest, c.pending[c.cfg.BatchSize:])
	c.pending = rest

	metrics.CollectorBatches.Inc()
	metrics.CollectorQueued.Set(int64(len(c.queue)))
	c.log.Info("batch closed", "batch", id, "requests", c.cfg.BatchSize, "queued", len(c.queue))
	return id, true
}

// Run starts MaxProvers workers and blocks until ctx is done and every
// worker has returned. Batches still queued at shutdown are dropped.
func (c *Collector) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.MaxProvers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.worker(ctx, worker)
		}(i)
	}
	<-ctx.Done()
	wg.Wait()

	c.mu.Lock()
	c.stopped = true
	dropped := len(c.queue)
	pending := len(c.pending)
	c.mu.Unlock()
	if dropped > 0 || pending > 0 {
		c.log.Warn("collector stopped with unproved requests", "queued_batches", dropped, "pending", pending)
	}
	return nil
}

func (c *Collector) worker(ctx context.Context, worker int) {
	logger := c.log.With("worker", worker)
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-c.queue:
			// The freed slot may take a batch that waited on the full queue.
			c.retryClose()
			c.prove(ctx, logger, batch)
			c.retryClose()
		}
	}
}

func (c *Collector) retryClose() {
	c.mu.Lock()
	c.closeBatchLocked()
	metrics.CollectorPending.Set(int64(len(c.pending)))
	metrics.CollectorQueued.Set(int64(len(c.queue)))
	c.mu.Unlock()
}

func (c *Collector) prove(ctx context.Context, logger *log.Logger, batch *types.BatchInput) {
	logger.Info("proving batch", "batch", batch.BatchID, "requests", batch.BatchSize())
	bundle, err := c.prover.Prove(ctx, batch)
	if err != nil {
		c.failed.Add(1)
		logger.Error("proof generation failed", "batch", batch.BatchID, "err", err)
		return
	}
	path := c.ProofPath(batch.BatchID)
	if err := prover.SaveBundle(path, bundle); err != nil {
		c.failed.Add(1)
		logger.Error("failed to save proof", "batch", batch.BatchID, "path", path, "err", err)
		return
	}
	c.generated.Add(1)
	logger.Info("proof saved", "batch", batch.BatchID, "path", path, "verified", bundle.Output.VerifiedCount)
}

// ProofPath returns the bundle path of batch id.
func (c *Collector) ProofPath(id uint64) string {
	return filepath.Join(c.cfg.OutputDir, fmt.Sprintf("proof_%d.json", id))
}

// PrepareOutputDir creates the output directory.
func (c *Collector) PrepareOutputDir() error {
	return os.MkdirAll(c.cfg.OutputDir, 0o755)
}

// Status returns the collector status.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Pending:          len(c.pending),
		BatchSize:        c.cfg.BatchSize,
		BatchesCompleted: c.closed,
		QueuedBatches:    len(c.queue),
		ProofsGenerated:  c.generated.Load(),
		ProofsFailed:     c.failed.Load(),
		SubmitRate:       metrics.CollectorSubmitRate.Rate1(),
	}
}

// PendingIDs returns the request ids of the current buffer in arrival order.
func (c *Collector) PendingIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, len(c.pending))
	for i, r := range c.pending {
		ids[i] = r.RequestID
	}
	return ids
}
