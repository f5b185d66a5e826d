package prover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tesserax/reml/core/types"
)

func TestRequestsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	reqs := GenerateTestBatch(3, false)
	require.NoError(t, SaveRequests(path, reqs))

	loaded, err := LoadRequests(path)
	require.NoError(t, err)
	require.Equal(t, reqs, loaded)
}

func TestLoadRequestsErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRequests(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrInputRead)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o644))
	_, err = LoadRequests(bad)
	require.ErrorIs(t, err, ErrInputParse)

	badHex := filepath.Join(dir, "hex.json")
	require.NoError(t, os.WriteFile(badHex, []byte(`[{"message":"0x00","public_key":"zz","signature":"0x","request_id":1}]`), 0o644))
	_, err = LoadRequests(badHex)
	require.ErrorIs(t, err, ErrInputParse)

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte(`[null]`), 0o644))
	_, err = LoadRequests(null)
	require.ErrorIs(t, err, ErrInputParse)
}

func TestBundleFileRoundTrip(t *testing.T) {
	p := newTestProver(t, false)
	bundle, err := p.Prove(context.Background(), types.NewBatchInput(GenerateTestBatch(2, false), 4))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "proof.json")
	require.NoError(t, SaveBundle(path, bundle))

	loaded, err := LoadBundle(path)
	require.NoError(t, err)
	require.Equal(t, bundle, loaded)
	require.NoError(t, p.Verify(loaded))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveBundleUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "proof.json")
	err := SaveBundle(path, &types.ProofBundle{Output: types.NewBatchOutput(1, nil)})
	require.ErrorIs(t, err, ErrOutputWrite)
	require.ErrorIs(t, SaveBundle(path, nil), ErrNilBundle)
}

func TestLoadBundleMissingOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proof.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"proof":"0x01","vkey_hash":"0x0000000000000000000000000000000000000000000000000000000000000000","generated_at":1}`), 0o644))
	_, err := LoadBundle(path)
	require.ErrorIs(t, err, ErrInputParse)
}

func TestProveFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "batch.json")
	out := filepath.Join(dir, "proof.json")
	require.NoError(t, SaveRequests(in, GenerateTestBatch(10, true)))

	p := newTestProver(t, false)
	bundle, err := p.ProveFile(context.Background(), in, out, 9)
	require.NoError(t, err)
	require.Equal(t, uint32(9), bundle.Output.VerifiedCount)

	loaded, err := LoadBundle(out)
	require.NoError(t, err)
	require.NoError(t, p.Verify(loaded))

	_, err = p.ProveFile(context.Background(), filepath.Join(dir, "nope.json"), out, 1)
	require.ErrorIs(t, err, ErrInputRead)
}
