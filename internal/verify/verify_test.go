package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkbattleship/internal/game"
)

func testBoard(t *testing.T) *game.Board {
	t.Helper()
	b, err := game.NewBoard([]game.Ship{
		{X: 0, Y: 0, Len: 5},
		{X: 0, Y: 2, Len: 4},
		{X: 0, Y: 4, Len: 3},
		{X: 0, Y: 6, Len: 3},
		{X: 0, Y: 8, Len: 2},
	})
	require.NoError(t, err)
	return b
}

// shipCells returns every coordinate some ship's footprint covers.
func shipCells(b *game.Board) map[game.Coord]bool {
	covered := make(map[game.Coord]bool)
	for _, s := range b.Ships {
		for _, c := range s.Footprint() {
			covered[c] = true
		}
	}
	return covered
}

func TestIsHitAgreesWithShipList(t *testing.T) {
	b := testBoard(t)
	covered := shipCells(b)
	for y := 0; y < game.Size; y++ {
		for x := 0; x < game.Size; x++ {
			c := game.Coord{X: x, Y: y}
			hit, err := IsHit(b, c)
			require.NoError(t, err)
			assert.Equal(t, covered[c], hit, "cell (%d,%d)", x, y)
		}
	}
}

func TestIsHitOutOfBounds(t *testing.T) {
	b := testBoard(t)
	for _, c := range []game.Coord{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 10, Y: 0}, {X: 0, Y: 10}} {
		_, err := IsHit(b, c)
		var oob *OutOfBoundsError
		require.ErrorAs(t, err, &oob)
	}
}

func TestAllSunkAtExactCount(t *testing.T) {
	b := testBoard(t)
	m := game.NewShotMap()

	cells := make([]game.Coord, 0, game.ShipCells)
	for c := range shipCells(b) {
		cells = append(cells, c)
	}
	require.Len(t, cells, game.ShipCells)

	for i, c := range cells {
		sunk, err := AllSunk(b, m)
		require.NoError(t, err)
		assert.False(t, sunk, "sunk before hit %d", i)
		m.Record(c, true)
	}
	sunk, err := AllSunk(b, m)
	require.NoError(t, err)
	assert.True(t, sunk, "all %d ship cells hit", game.ShipCells)
}

func TestAllSunkRejectsMisplacedHits(t *testing.T) {
	b := testBoard(t)
	m := game.NewShotMap()

	// The right number of hits at water coordinates must not read as
	// sunk: the column x=9 never carries a ship on this board.
	for y := 0; y < game.Size; y++ {
		m.Record(game.Coord{X: 9, Y: y}, true)
	}
	for y := 0; y < 7; y++ {
		m.Record(game.Coord{X: 8, Y: y}, true)
	}
	require.Equal(t, game.ShipCells, m.HitCount())

	sunk, err := AllSunk(b, m)
	require.NoError(t, err)
	assert.False(t, sunk)
}

func TestAllSunkIgnoresMisses(t *testing.T) {
	b := testBoard(t)
	m := game.NewShotMap()
	for c := range shipCells(b) {
		m.Record(c, true)
	}
	for x := 5; x < 10; x++ {
		m.Record(game.Coord{X: x, Y: 9}, false)
	}
	sunk, err := AllSunk(b, m)
	require.NoError(t, err)
	assert.True(t, sunk)
}
