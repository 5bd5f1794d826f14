package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// FleetCells is the occupied-cell count of a valid fleet.
const FleetCells = 17

// GameEndCircuit proves the committed board is fully sunk under a
// public shot-history bitmap: every ship cell was fired upon, the
// fleet has the right cell count, and the bitmap hashes to the public
// history digest.
type GameEndCircuit struct {
	Cells [NumCells]frontend.Variable `gnark:",secret"`
	Salt  frontend.Variable           `gnark:",secret"`

	Commitment    frontend.Variable           `gnark:",public"`
	History       [NumCells]frontend.Variable `gnark:",public"`
	HistoryDigest frontend.Variable           `gnark:",public"`
}

func (c *GameEndCircuit) Define(api frontend.API) error {
	for i := 0; i < NumCells; i++ {
		api.AssertIsBoolean(c.Cells[i])
		api.AssertIsBoolean(c.History[i])
	}

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Cells[:]...)
	h.Write(c.Salt)
	api.AssertIsEqual(h.Sum(), c.Commitment)

	h.Reset()
	h.Write(c.History[:]...)
	api.AssertIsEqual(h.Sum(), c.HistoryDigest)

	// Every ship cell fired upon: cell=1 forces history=1.
	total := frontend.Variable(0)
	for i := 0; i < NumCells; i++ {
		api.AssertIsEqual(api.Mul(c.Cells[i], api.Sub(1, c.History[i])), 0)
		total = api.Add(total, c.Cells[i])
	}
	api.AssertIsEqual(total, FleetCells)
	return nil
}
