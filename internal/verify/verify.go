// Package verify computes ground truth about a board, independent of
// any party's claim. Everything here is pure and safe to re-run when
// events replay.
package verify

import (
	"fmt"

	"zkbattleship/internal/game"
)

// OutOfBoundsError reports a shot coordinate outside the grid.
type OutOfBoundsError struct {
	At game.Coord
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("coordinate (%d,%d) outside %dx%d grid", e.At.X, e.At.Y, game.Size, game.Size)
}

// IsHit reports whether the cell at c is ship-occupied.
func IsHit(b *game.Board, c game.Coord) (bool, error) {
	if !c.InBounds() {
		return false, &OutOfBoundsError{At: c}
	}
	return b.Cells[c.Y][c.X] == 1, nil
}

// AllSunk reports whether every ship cell has been hit. Both legs are
// required: each recorded hit must actually land on a ship cell, and
// the hit count must equal the fleet's cell count. The per-hit check
// means a shot map with the right number of hits at wrong coordinates
// does not read as sunk.
func AllSunk(b *game.Board, m *game.ShotMap) (bool, error) {
	for _, c := range m.Hits() {
		hit, err := IsHit(b, c)
		if err != nil {
			return false, err
		}
		if !hit {
			return false, nil
		}
	}
	return m.HitCount() == game.ShipCells, nil
}
