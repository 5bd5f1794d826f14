package game

import (
	"fmt"
	"math/rand"
	"sort"
)

// Size is the board edge length. Cell: 0=water, 1=ship.
const Size = 10

// FleetSizes is the fixed ship multiset. Total 17 cells.
var FleetSizes = []int{5, 4, 3, 3, 2}

// ShipCells is the number of occupied cells on a valid board.
const ShipCells = 17

// Coord addresses a single cell. X is the column, Y the row.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Index is the row-major flattening used for commitments and circuit
// input. Keep in sync with Board.Flatten.
func (c Coord) Index() int { return c.Y*Size + c.X }

func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < Size && c.Y >= 0 && c.Y < Size
}

// Ship is an axis-aligned placement anchored at its top-left cell.
type Ship struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Len      int  `json:"len"`
	Vertical bool `json:"vertical"`
}

// Footprint lists the cells the ship covers, anchor first.
func (s Ship) Footprint() []Coord {
	out := make([]Coord, s.Len)
	for i := 0; i < s.Len; i++ {
		if s.Vertical {
			out[i] = Coord{X: s.X, Y: s.Y + i}
		} else {
			out[i] = Coord{X: s.X + i, Y: s.Y}
		}
	}
	return out
}

type PlacementReason string

const (
	ReasonOutOfBounds PlacementReason = "out_of_bounds"
	ReasonOverlap     PlacementReason = "overlap"
)

// PlacementError reports the first ship that violated bounds or the
// no-touch rule while building a board.
type PlacementError struct {
	Ship   Ship
	Reason PlacementReason
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place ship len=%d at (%d,%d): %s", e.Ship.Len, e.Ship.X, e.Ship.Y, e.Reason)
}

// CompositionError reports a ship-size multiset that is not the fleet.
type CompositionError struct {
	Got []int
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("ship sizes %v do not match fleet %v", e.Got, FleetSizes)
}

// GridMismatchError reports a stored cell that disagrees with the
// union of ship footprints.
type GridMismatchError struct {
	At Coord
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("cell (%d,%d) disagrees with ship placement", e.At.X, e.At.Y)
}

// Board is the secret ship placement plus its derived cell grid. The
// grid is only ever written through ship placement.
type Board struct {
	Ships []Ship            `json:"ships"`
	Cells [Size][Size]uint8 `json:"cells"`
}

// NewBoard places ships one by one, failing on the first violation.
// Ships may not leave the grid, overlap, or touch (8-neighborhood).
func NewBoard(ships []Ship) (*Board, error) {
	b := &Board{Ships: make([]Ship, 0, len(ships))}
	// blocked marks occupied cells plus a one-cell halo around each
	// placed ship, so a touching placement collides like an overlap.
	var blocked [Size][Size]bool
	for _, s := range ships {
		for _, c := range s.Footprint() {
			if !c.InBounds() {
				return nil, &PlacementError{Ship: s, Reason: ReasonOutOfBounds}
			}
			if blocked[c.Y][c.X] {
				return nil, &PlacementError{Ship: s, Reason: ReasonOverlap}
			}
		}
		for _, c := range s.Footprint() {
			b.Cells[c.Y][c.X] = 1
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					n := Coord{X: c.X + dx, Y: c.Y + dy}
					if n.InBounds() {
						blocked[n.Y][n.X] = true
					}
				}
			}
		}
		b.Ships = append(b.Ships, s)
	}
	return b, nil
}

// Validate checks the fleet composition and that the stored grid is
// exactly the union of ship footprints.
func (b *Board) Validate() error {
	sizes := make([]int, 0, len(b.Ships))
	for _, s := range b.Ships {
		sizes = append(sizes, s.Len)
	}
	want := append([]int(nil), FleetSizes...)
	sort.Ints(sizes)
	sort.Ints(want)
	if len(sizes) != len(want) {
		return &CompositionError{Got: sizes}
	}
	for i := range want {
		if sizes[i] != want[i] {
			return &CompositionError{Got: sizes}
		}
	}

	var union [Size][Size]uint8
	for _, s := range b.Ships {
		for _, c := range s.Footprint() {
			union[c.Y][c.X] = 1
		}
	}
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if b.Cells[y][x] != union[y][x] {
				return &GridMismatchError{At: Coord{X: x, Y: y}}
			}
		}
	}
	return nil
}

// Flatten serializes the grid row-major from the origin, one symbol
// per cell. This ordering is the commitment wire format.
func (b *Board) Flatten() []uint8 {
	out := make([]uint8, Size*Size)
	k := 0
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			out[k] = b.Cells[y][x]
			k++
		}
	}
	return out
}

const (
	placeAttempts = 200 // per ship before restarting the whole layout
	layoutRetries = 500
)

// GenerateRandomBoard places the standard fleet at random, restarting
// the whole layout when a ship runs out of attempts rather than
// forcing an unsolvable partial placement.
func GenerateRandomBoard() (*Board, error) {
	for try := 0; try < layoutRetries; try++ {
		ships := make([]Ship, 0, len(FleetSizes))
		ok := true
		for _, l := range FleetSizes {
			placed := false
			for a := 0; a < placeAttempts; a++ {
				s := Ship{
					X:        rand.Intn(Size),
					Y:        rand.Intn(Size),
					Len:      l,
					Vertical: rand.Intn(2) == 0,
				}
				if _, err := NewBoard(append(ships, s)); err == nil {
					ships = append(ships, s)
					placed = true
					break
				}
			}
			if !placed {
				ok = false
				break
			}
		}
		if ok {
			return NewBoard(ships)
		}
	}
	return nil, fmt.Errorf("failed to place fleet after %d layouts", layoutRetries)
}
