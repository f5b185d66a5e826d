package zkvm

import (
	"encoding/binary"
	"errors"
)

var ErrNilProgram = errors.New("zkvm: nil or empty program")

// vkDomain separates verification key derivation from other program hashes.
var vkDomain = []byte("reml-zkvm-vk-v1")

// Setup derives the proving and verification keys of a program. Keys are a
// pure function of the program image and version, so every prover that
// builds the same image obtains the same verifier key hash.
func Setup(program *GuestProgram) (*ProvingKey, *VerificationKey, error) {
	if program == nil || len(program.Image) == 0 || program.Entry == nil {
		return nil, nil, ErrNilProgram
	}
	programHash := program.Hash()

	data := make([]byte, 0, len(vkDomain)+32+4)
	data = append(data, vkDomain...)
	data = append(data, programHash[:]...)
	data = binary.LittleEndian.AppendUint32(data, program.Version)

	vk := &VerificationKey{Data: data, ProgramHash: programHash}
	pk := &ProvingKey{Program: program, VKeyHash: vk.Hash()}
	return pk, vk, nil
}
