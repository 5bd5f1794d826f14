package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// NumCells is the flattened board length (10x10, row-major).
const NumCells = 100

// ShotCircuit proves that the cell at a public index of the committed
// board equals the public hit flag, without revealing the board.
type ShotCircuit struct {
	Cells [NumCells]frontend.Variable `gnark:",secret"`
	Salt  frontend.Variable           `gnark:",secret"`

	Commitment frontend.Variable `gnark:",public"`
	Index      frontend.Variable `gnark:",public"`
	Hit        frontend.Variable `gnark:",public"`
}

func (c *ShotCircuit) Define(api frontend.API) error {
	for i := 0; i < NumCells; i++ {
		api.AssertIsBoolean(c.Cells[i])
	}
	api.AssertIsBoolean(c.Hit)

	// Commitment = MiMC(cells row-major, salt). Must absorb in the
	// exact order the off-chain engine uses.
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Cells[:]...)
	h.Write(c.Salt)
	api.AssertIsEqual(h.Sum(), c.Commitment)

	// One-hot select the targeted cell and bind it to Hit.
	sel := frontend.Variable(0)
	for i := 0; i < NumCells; i++ {
		eq := api.IsZero(api.Sub(c.Index, i))
		sel = api.Add(sel, api.Mul(eq, c.Cells[i]))
	}
	api.AssertIsEqual(c.Hit, sel)
	return nil
}
