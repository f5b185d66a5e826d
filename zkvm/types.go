// Package zkvm provides the execution and proving framework the batch
// verification guest runs in: program images and their keys, a single-use
// guest context with public input/output channels and an execution trace,
// and pluggable proof backends with their verifiers.
package zkvm

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tesserax/reml/crypto"
)

// GuestFunc is the entry point of a guest program. It reads its input from
// env, commits public values to env and returns an error to abort proving.
type GuestFunc func(env *GuestContext) error

// GuestProgram is a guest program image. The image bytes define the
// program's identity and therefore its verification key; Entry is the native
// implementation the image describes.
type GuestProgram struct {
	// Name identifies the program in logs.
	Name string

	// Image is the canonical program image.
	Image []byte

	// Version identifies the revision of the program logic.
	Version uint32

	// Entry runs the program.
	Entry GuestFunc
}

// Hash returns Keccak256(version || image).
func (p *GuestProgram) Hash() common.Hash {
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], p.Version)
	return crypto.Keccak256Hash(v[:], p.Image)
}

// ProvingKey is the prover-side key produced by Setup.
type ProvingKey struct {
	// Program is the guest program proofs are produced for.
	Program *GuestProgram

	// VKeyHash is the hash of the matching verification key, embedded in
	// every proof.
	VKeyHash common.Hash
}

// VerificationKey is the public verification key for a zkVM proof system.
// It is derived from the guest program and can verify proofs produced by it.
type VerificationKey struct {
	// Data is the serialized verification key.
	Data []byte

	// ProgramHash is the hash of the guest program this key verifies.
	ProgramHash common.Hash
}

// Hash returns the verifier key hash that identifies the guest program
// on-chain.
func (vk *VerificationKey) Hash() common.Hash {
	return crypto.Keccak256Hash(vk.Data)
}

// Proof represents a proof of correct execution together with the public
// values it attests to.
type Proof struct {
	// Data is the serialized proof.
	Data []byte

	// PublicValues are the bytes the guest committed.
	PublicValues []byte
}

// ProverBackend defines the interface for a zkVM proving system.
type ProverBackend interface {
	// Name returns the name of the prover backend.
	Name() string

	// Prove executes the program behind pk on input and proves the run.
	Prove(pk *ProvingKey, input []byte) (*Proof, error)

	// Verify checks a proof against a verification key.
	Verify(vk *VerificationKey, proof *Proof) (bool, error)
}
