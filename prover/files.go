package prover

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tesserax/reml/core/types"
)

// LoadRequests reads a JSON array of signature requests.
func LoadRequests(path string) ([]*types.SignatureRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
	}
	var reqs []*types.SignatureRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputParse, path, err)
	}
	for i, r := range reqs {
		if r == nil {
			return nil, fmt.Errorf("%w: %s: null request at index %d", ErrInputParse, path, i)
		}
	}
	return reqs, nil
}

// SaveRequests writes reqs as an indented JSON array.
func SaveRequests(path string, reqs []*types.SignatureRequest) error {
	if reqs == nil {
		reqs = []*types.SignatureRequest{}
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: requests: %w", ErrSerialize, err)
	}
	return writeFileAtomic(path, data)
}

// LoadBundle reads a JSON proof bundle.
func LoadBundle(path string) (*types.ProofBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputRead, err)
	}
	var bundle types.ProofBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputParse, path, err)
	}
	if bundle.Output == nil {
		return nil, fmt.Errorf("%w: %s: missing output", ErrInputParse, path)
	}
	return &bundle, nil
}

// SaveBundle writes bundle as indented JSON. The file is written to a
// temporary sibling and renamed, so path never holds a partial bundle.
func SaveBundle(path string, bundle *types.ProofBundle) error {
	if bundle == nil {
		return ErrNilBundle
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: bundle: %w", ErrSerialize, err)
	}
	return writeFileAtomic(path, data)
}

// ProveFile is batch-file mode: load the requests at in, prove them as
// batch batchID and save the bundle at out.
func (p *Prover) ProveFile(ctx context.Context, in, out string, batchID uint64) (*types.ProofBundle, error) {
	reqs, err := LoadRequests(in)
	if err != nil {
		return nil, err
	}
	p.log.Info("loaded signature requests", "path", in, "count", len(reqs))

	bundle, err := p.Prove(ctx, types.NewBatchInput(reqs, batchID))
	if err != nil {
		return nil, err
	}
	if err := SaveBundle(out, bundle); err != nil {
		return nil, err
	}
	p.log.Info("proof saved", "path", out, "verified", bundle.Output.VerifiedCount)
	return bundle, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	name := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	return nil
}
