// Command reml-prover generates and checks batch ML-DSA verification proofs
// and runs the collector server.
//
// Usage:
//
//	reml-prover [--log-level LEVEL] [--log-format text|json] <command> [flags]
//
// Commands:
//
//	prove      --input <path> --output <path> [--batch-id N] [--mock]
//	verify     --proof <path>
//	gen-test   --output <path> [--count N] [--include-invalid]
//	serve      [--port N] [--batch-size N] [--output-dir <path>] [--config <path>]
//	vkey-hash  print the verification key hash of the guest program
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tesserax/reml/aggregator"
	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/log"
	"github.com/tesserax/reml/prover"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string, stdout, stderr io.Writer) int {
	fs := newCommandFlagSet("reml-prover", stderr)
	level := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	format := fs.String("log-format", log.FormatText, "log format (text, json)")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "reml-prover %s (commit %s)\n", version, commit)
		return 0
	}

	lvl, ok := log.ParseLevel(*level)
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown log level %q\n", *level)
		return 2
	}
	logger, err := log.NewWithFormat(stderr, lvl, *format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	log.SetDefault(logger)

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}
	c := &cli{stdout: stdout, stderr: stderr, log: logger}

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "prove":
		err = c.prove(cmdArgs)
	case "verify":
		err = c.verify(cmdArgs)
	case "gen-test":
		err = c.genTest(cmdArgs)
	case "serve":
		err = c.serve(cmdArgs)
	case "vkey-hash":
		err = c.vkeyHash(cmdArgs)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: reml-prover [--log-level LEVEL] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  prove      generate a proof for a batch of signature requests")
	fmt.Fprintln(w, "  verify     verify a proof bundle")
	fmt.Fprintln(w, "  gen-test   generate a test batch of signed requests")
	fmt.Fprintln(w, "  serve      run the collector server")
	fmt.Fprintln(w, "  vkey-hash  print the guest program verification key hash")
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	log    *log.Logger
}

// parse parses command flags and maps parse failures to errUsage.
func (c *cli) parse(fs *flagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(c.stderr, "Error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func (c *cli) required(fs *flagSet, names ...string) error {
	for _, name := range names {
		if f := fs.Lookup(name); f == nil || f.Value.String() == "" {
			fmt.Fprintf(c.stderr, "Error: --%s is required\n", name)
			fs.PrintDefaults()
			return errUsage
		}
	}
	return nil
}

func (c *cli) prove(args []string) error {
	fs := newCommandFlagSet("prove", c.stderr)
	input := fs.String("input", "", "signature requests file (JSON)")
	output := fs.String("output", "", "proof bundle output file")
	batchID := fs.Uint64("batch-id", 1, "batch identifier")
	mock := fs.Bool("mock", false, "use the mock backend")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if err := c.required(fs, "input", "output"); err != nil {
		return err
	}

	p, err := prover.New(prover.Config{Mock: *mock, Logger: c.log})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bundle, err := p.ProveFile(ctx, *input, *output, *batchID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Proof saved to %s\n", *output)
	fmt.Fprintf(c.stdout, "  Batch ID:          %d\n", bundle.Output.BatchID)
	fmt.Fprintf(c.stdout, "  Verified:          %d signatures\n", bundle.Output.VerifiedCount)
	fmt.Fprintf(c.stdout, "  Requests root:     %s\n", bundle.Output.RequestsRoot.Hex())
	fmt.Fprintf(c.stdout, "  Proof size:        %d bytes\n", bundle.ProofSize())
	fmt.Fprintf(c.stdout, "  Compression ratio: %.1fx\n", bundle.CompressionRatio())
	return nil
}

func (c *cli) verify(args []string) error {
	fs := newCommandFlagSet("verify", c.stderr)
	path := fs.String("proof", "", "proof bundle file")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if err := c.required(fs, "proof"); err != nil {
		return err
	}

	bundle, err := prover.LoadBundle(*path)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Proof details:")
	printBundle(c.stdout, bundle)

	p, err := prover.New(prover.Config{Logger: c.log})
	if err != nil {
		return err
	}
	if err := p.Verify(bundle); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Proof is VALID: %d signatures verified in the zkVM\n", bundle.Output.VerifiedCount)
	return nil
}

func printBundle(w io.Writer, b *types.ProofBundle) {
	fmt.Fprintf(w, "  Batch ID:            %d\n", b.Output.BatchID)
	fmt.Fprintf(w, "  Verified signatures: %d\n", b.Output.VerifiedCount)
	fmt.Fprintf(w, "  Requests root:       %s\n", b.Output.RequestsRoot.Hex())
	fmt.Fprintf(w, "  Proof size:          %d bytes\n", b.ProofSize())
	fmt.Fprintf(w, "  VKey hash:           %s\n", b.VKeyHash.Hex())
}

func (c *cli) genTest(args []string) error {
	fs := newCommandFlagSet("gen-test", c.stderr)
	count := fs.Int("count", 10, "number of requests")
	output := fs.String("output", "", "output file")
	invalid := fs.Bool("include-invalid", false, "corrupt the signatures of the first tenth of the requests")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if err := c.required(fs, "output"); err != nil {
		return err
	}
	if *count < 0 {
		fmt.Fprintf(c.stderr, "Error: --count must not be negative\n")
		return errUsage
	}

	reqs := prover.GenerateTestBatch(*count, *invalid)
	if err := prover.SaveRequests(*output, reqs); err != nil {
		return err
	}
	bad := 0
	if *invalid {
		bad = *count / 10
	}
	fmt.Fprintf(c.stdout, "Generated %d test requests (%d valid, %d invalid) to %s\n",
		len(reqs), len(reqs)-bad, bad, *output)
	return nil
}

func (c *cli) serve(args []string) error {
	fs := newCommandFlagSet("serve", c.stderr)
	var port uint16
	fs.Uint16Var(&port, "port", 8080, "listen port")
	batchSize := fs.Int("batch-size", 100, "requests per batch")
	outputDir := fs.String("output-dir", "./proofs", "proof bundle directory")
	configPath := fs.String("config", "", "config file (toml, yaml or json)")
	mock := fs.Bool("mock", false, "use the mock backend")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	cfg, err := aggregator.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if fs.isSet("port") {
		cfg.ListenAddr = fmt.Sprintf("0.0.0.0:%d", port)
	}
	if fs.isSet("batch-size") {
		cfg.BatchSize = *batchSize
	}
	if fs.isSet("output-dir") {
		cfg.OutputDir = *outputDir
	}
	if fs.isSet("mock") {
		cfg.Mock = *mock
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := aggregator.NewService(cfg, c.log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(c.stdout, "Collector listening on %s (batch size %d, output %s)\n",
		cfg.ListenAddr, cfg.BatchSize, cfg.OutputDir)
	return svc.Run(ctx)
}

func (c *cli) vkeyHash(args []string) error {
	fs := newCommandFlagSet("vkey-hash", c.stderr)
	if err := c.parse(fs, args); err != nil {
		return err
	}
	p, err := prover.New(prover.Config{Logger: c.log})
	if err != nil {
		return err
	}
	hash := p.VKeyHash()

	fmt.Fprintln(c.stdout, "Guest program verification key")
	fmt.Fprintf(c.stdout, "  VKey hash (hex): %s\n", hash.Hex())
	fmt.Fprintln(c.stdout, "  VKey hash (bytes):")
	for i := 0; i < len(hash); i += 8 {
		parts := make([]string, 0, 8)
		for _, b := range hash[i : i+8] {
			parts = append(parts, fmt.Sprintf("0x%02x", b))
		}
		fmt.Fprintf(c.stdout, "    %s,\n", strings.Join(parts, ", "))
	}
	return nil
}
