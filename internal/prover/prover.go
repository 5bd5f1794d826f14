// Package prover is the seam to the proving service: a named circuit
// plus a structured input goes in, an opaque proof artifact comes
// out. Failures carry no partial output.
package prover

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"zkbattleship/internal/claim"
	"zkbattleship/internal/zk"
)

// Prover turns a circuit input into a proof artifact.
type Prover interface {
	Prove(ctx context.Context, in *claim.CircuitInput) ([]byte, error)
}

// Local proves with the embedded groth16 backend and on-disk keys.
type Local struct {
	KeysDir string
	Log     zerolog.Logger
}

func NewLocal(keysDir string, log zerolog.Logger) (*Local, error) {
	if err := zk.EnsureKeys(keysDir); err != nil {
		return nil, fmt.Errorf("ensure keys: %w", err)
	}
	return &Local{KeysDir: keysDir, Log: log.With().Str("component", "prover").Logger()}, nil
}

func (p *Local) Prove(ctx context.Context, in *claim.CircuitInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assignment, err := zk.Assignment(in)
	if err != nil {
		return nil, err
	}
	proof, err := zk.Prove(p.KeysDir, in.Circuit, assignment)
	if err != nil {
		return nil, fmt.Errorf("prove %s: %w", in.Circuit, err)
	}
	p.Log.Debug().Str("circuit", in.Circuit).Int("proof_bytes", len(proof)).Msg("proof generated")
	return proof, nil
}
