package zk

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"zkbattleship/internal/claim"
)

// circuitFor maps a proving-service circuit id to an empty circuit.
func circuitFor(name string) (frontend.Circuit, error) {
	switch name {
	case claim.CircuitShot:
		return &ShotCircuit{}, nil
	case claim.CircuitGameEnd:
		return &GameEndCircuit{}, nil
	default:
		return nil, fmt.Errorf("unknown circuit %q", name)
	}
}

func pkPath(dir, name string) string { return filepath.Join(dir, name+".pk") }

// VKPath locates the verifying key file for a circuit.
func VKPath(dir, name string) string { return filepath.Join(dir, name+".vk") }

// EnsureKeys generates and caches proving/verifying keys for every
// circuit. Existing parseable key files are reused.
func EnsureKeys(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range []string{claim.CircuitShot, claim.CircuitGameEnd} {
		if _, err := readVK(VKPath(dir, name)); err == nil {
			if _, err := readPK(pkPath(dir, name)); err == nil {
				continue
			}
		}
		circuit, err := circuitFor(name)
		if err != nil {
			return err
		}
		cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
		if err != nil {
			return fmt.Errorf("compile %s: %w", name, err)
		}
		pk, vk, err := groth16.Setup(cs)
		if err != nil {
			return fmt.Errorf("setup %s: %w", name, err)
		}
		if err := writeKey(VKPath(dir, name), vk); err != nil {
			return err
		}
		if err := writeKey(pkPath(dir, name), pk); err != nil {
			return err
		}
	}
	return nil
}

// Prove compiles the named circuit, loads its proving key and proves
// the full witness assignment. Returns the serialized proof.
func Prove(keysDir, name string, assignment frontend.Circuit) ([]byte, error) {
	circuit, err := circuitFor(name)
	if err != nil {
		return nil, err
	}
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	pk, err := readPK(pkPath(keysDir, name))
	if err != nil {
		return nil, err
	}
	wit, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(cs, pk, wit)
	if err != nil {
		return nil, fmt.Errorf("prove %s: %w", name, err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against a public-only assignment.
// A nil error from groth16 means valid.
func Verify(vkPath string, proofBin []byte, public frontend.Circuit) (bool, error) {
	pubWit, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}
	vk, err := readVK(vkPath)
	if err != nil {
		return false, err
	}
	pr := groth16.NewProof(ecc.BN254)
	if _, err := pr.ReadFrom(bytes.NewReader(proofBin)); err != nil {
		return false, err
	}
	if err := groth16.Verify(pr, vk, pubWit); err != nil {
		return false, nil
	}
	return true, nil
}

// --- key IO via io.WriterTo / io.ReaderFrom ---

func writeKey(path string, k io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = k.WriteTo(f)
	return err
}

func readVK(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func readPK(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}
