package admission

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tesserax/reml/core/types"
)

// Config holds the admission parameters fixed at genesis.
type Config struct {
	// ProtocolVersion and ChainTag must match every admitted output.
	ProtocolVersion uint8
	ChainTag        uint32

	// ExpectedVKeyHash pins the guest program. The zero hash disables the
	// check.
	ExpectedVKeyHash common.Hash

	// MaxProofSize bounds the proof blob in bytes.
	MaxProofSize int

	// MaxVerifiedRequests bounds the id list of one submission.
	MaxVerifiedRequests int
}

// DefaultConfig returns the parameters of the reference chain with the
// verification key check disabled.
func DefaultConfig() Config {
	return Config{
		ProtocolVersion:     types.ProtocolVersion,
		ChainTag:            types.ChainTag,
		MaxProofSize:        100 * 1024,
		MaxVerifiedRequests: 1000,
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.MaxProofSize <= 0 {
		return fmt.Errorf("config: invalid max proof size: %d", c.MaxProofSize)
	}
	if c.MaxVerifiedRequests <= 0 {
		return fmt.Errorf("config: invalid max verified requests: %d", c.MaxVerifiedRequests)
	}
	if c.ProtocolVersion == 0 {
		return errors.New("config: protocol version must not be zero")
	}
	return nil
}
