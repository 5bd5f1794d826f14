package commit

import (
	"strings"
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

func TestBoardCommitmentDeterministic(t *testing.T) {
	b := testBoard(t)
	salt, err := NewSalt()
	require.NoError(t, err)

	d1, err := Board(b, salt)
	require.NoError(t, err)
	d2, err := Board(b, salt)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestBoardCommitmentBindsCells(t *testing.T) {
	b := testBoard(t)
	salt, err := NewSalt()
	require.NoError(t, err)
	d1, err := Board(b, salt)
	require.NoError(t, err)

	// Move a single ship cell.
	b2, err := game.NewBoard([]game.Ship{
		{X: 1, Y: 0, Len: 5},
		{X: 0, Y: 2, Len: 4},
		{X: 0, Y: 4, Len: 3},
		{X: 0, Y: 6, Len: 3},
		{X: 0, Y: 8, Len: 2},
	})
	require.NoError(t, err)
	d2, err := Board(b2, salt)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestBoardCommitmentBindsSalt(t *testing.T) {
	b := testBoard(t)
	s1, err := NewSalt()
	require.NoError(t, err)
	s2, err := NewSalt()
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)

	d1, err := Board(b, s1)
	require.NoError(t, err)
	d2, err := Board(b, s2)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestDigestHexFixedWidth(t *testing.T) {
	b := testBoard(t)
	salt, err := NewSalt()
	require.NoError(t, err)
	d, err := Board(b, salt)
	require.NoError(t, err)

	h := d.Hex()
	assert.Len(t, h, 2*DigestSize)
	assert.Equal(t, strings.ToLower(h), h)

	back, err := DigestFromHex(h)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestSaltRoundTrip(t *testing.T) {
	s, err := NewSalt()
	require.NoError(t, err)
	back, err := SaltFromHex(s.Hex())
	require.NoError(t, err)
	assert.Equal(t, s, back)

	_, err = SaltFromHex("abcd")
	assert.Error(t, err)
}

func TestHistoryDigest(t *testing.T) {
	m := game.NewShotMap()
	m.Record(game.Coord{X: 0, Y: 0}, true)
	m.Record(game.Coord{X: 5, Y: 5}, false)

	d1, err := History(m.Bitmap())
	require.NoError(t, err)
	d2, err := History(m.Bitmap())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	m.Record(game.Coord{X: 1, Y: 1}, false)
	d3, err := History(m.Bitmap())
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	_, err = History([]uint8{1, 0})
	assert.Error(t, err)
}
