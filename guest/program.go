package guest

import (
	"encoding/binary"
	"fmt"

	"github.com/tesserax/reml/core/types"
	"github.com/tesserax/reml/crypto/pqc"
	"github.com/tesserax/reml/zkvm"
)

const (
	ProgramName    = "reml-guest"
	ProgramVersion = 1
)

// Main is the zkVM entry point: decode the input, run the batch, record
// every outcome in the trace and commit the encoded output.
func Main(env *zkvm.GuestContext) error {
	in, err := types.DecodeBatchInput(env.Read())
	if err != nil {
		return err
	}
	env.Record("batch", binary.LittleEndian.AppendUint64(nil, in.BatchID))

	out, err := Run(in, func(req *types.SignatureRequest, outcome Outcome) {
		var id uint64
		if req != nil {
			id = req.RequestID
		}
		env.Record("request", binary.LittleEndian.AppendUint64(nil, id), []byte{byte(outcome)})
	})
	if err != nil {
		return err
	}

	enc, err := out.Encode()
	if err != nil {
		return fmt.Errorf("guest: encode output: %w", err)
	}
	env.Commit(enc)
	return nil
}

// image binds the parameter set and protocol constants the program
// enforces. Changing any of them changes the verifier key hash.
func image() []byte {
	return []byte(fmt.Sprintf(
		"%s/v%d mldsa44 n=%d q=%d k=%d l=%d pk=%d sig=%d merkle=keccak256-promote-odd protocol=%d chain=%d max-batch=%d",
		ProgramName, ProgramVersion,
		pqc.MLDSAN, pqc.MLDSAQ, pqc.MLDSAK, pqc.MLDSAL,
		pqc.MLDSA44PublicKeySize, pqc.MLDSA44SignatureSize,
		types.ProtocolVersion, types.ChainTag, types.MaxBatchSize,
	))
}

// Program returns the batch-verification guest program.
func Program() *zkvm.GuestProgram {
	return &zkvm.GuestProgram{
		Name:    ProgramName,
		Image:   image(),
		Version: ProgramVersion,
		Entry:   Main,
	}
}
