package aggregator

import (
	"context"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/metrics"
	"github.com/tesserax/reml/prover"
)

// Service runs a collector and its protocol server together.
type Service struct {
	cfg       Config
	collector *Collector
	server    *Server
	log       *log.Logger
}

// NewService wires a prover, a collector and a server from cfg.
func NewService(cfg Config, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}
	p, err := prover.New(prover.Config{Mock: cfg.Mock, Logger: logger})
	if err != nil {
		return nil, err
	}
	return newService(cfg, p, logger)
}

func newService(cfg Config, p BatchProver, logger *log.Logger) (*Service, error) {
	c, err := NewCollector(cfg, p, logger)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:       cfg,
		collector: c,
		server:    NewServer(c, cfg, logger),
		log:       logger.Module("aggregator"),
	}, nil
}

// Collector returns the service's collector.
func (s *Service) Collector() *Collector { return s.collector }

// Server returns the service's protocol server.
func (s *Service) Server() *Server { return s.server }

// Run binds the listen address and serves until ctx is done, then shuts the
// server down and waits for the workers.
func (s *Service) Run(ctx context.Context) error {
	ln, err := s.server.Listen()
	if err != nil {
		return err
	}
	return s.RunListener(ctx, ln)
}

// RunListener is Run on an existing listener.
func (s *Service) RunListener(ctx context.Context, ln net.Listener) error {
	if err := s.collector.PrepareOutputDir(); err != nil {
		ln.Close()
		return err
	}
	s.log.Info("starting aggregator",
		"batch_size", s.cfg.BatchSize,
		"max_provers", s.cfg.MaxProvers,
		"max_pending", s.cfg.MaxPending,
		"output_dir", s.cfg.OutputDir,
		"mock", s.cfg.Mock,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.server.Serve(ln) })
	g.Go(func() error { return s.collector.Run(gctx) })
	g.Go(func() error {
		reporter := metrics.NewReporter(metrics.DefaultRegistry, s.cfg.ReportInterval, func(v map[string]float64) {
			s.log.Info("metrics", metrics.SortedArgs(v)...)
		})
		reporter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(sctx)
	})
	err := g.Wait()
	s.log.Info("aggregator stopped")
	return err
}
