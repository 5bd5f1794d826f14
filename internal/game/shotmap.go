package game

// ShotMap is the shooter's append-only record of what they have
// learned about one target board: which coordinates were hits and
// which were misses. A coordinate belongs to at most one of the two
// sets; re-recording a known coordinate is a no-op and the first
// classification wins, which makes replayed events harmless.
type ShotMap struct {
	hits   map[Coord]struct{}
	misses map[Coord]struct{}
}

func NewShotMap() *ShotMap {
	return &ShotMap{
		hits:   make(map[Coord]struct{}),
		misses: make(map[Coord]struct{}),
	}
}

// Record stores the outcome for c. Returns true if the shot was new.
func (m *ShotMap) Record(c Coord, hit bool) bool {
	if m.Known(c) {
		return false
	}
	if hit {
		m.hits[c] = struct{}{}
	} else {
		m.misses[c] = struct{}{}
	}
	return true
}

// Known reports whether c has already been recorded, either way.
func (m *ShotMap) Known(c Coord) bool {
	if _, ok := m.hits[c]; ok {
		return true
	}
	_, ok := m.misses[c]
	return ok
}

// IsHit reports whether c was recorded as a hit.
func (m *ShotMap) IsHit(c Coord) bool {
	_, ok := m.hits[c]
	return ok
}

func (m *ShotMap) HitCount() int  { return len(m.hits) }
func (m *ShotMap) MissCount() int { return len(m.misses) }

// Hits returns the recorded hit coordinates in no particular order.
func (m *ShotMap) Hits() []Coord {
	out := make([]Coord, 0, len(m.hits))
	for c := range m.hits {
		out = append(out, c)
	}
	return out
}

// Bitmap flattens the fired-upon cells (hit or miss) row-major, the
// same ordering as Board.Flatten. The result depends only on the set
// contents, never on recording order.
func (m *ShotMap) Bitmap() []uint8 {
	out := make([]uint8, Size*Size)
	for c := range m.hits {
		out[c.Index()] = 1
	}
	for c := range m.misses {
		out[c.Index()] = 1
	}
	return out
}
