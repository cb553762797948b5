package rotation

import (
	"github.com/zapponejosh/organ-rotation/internal/database"
)

// Position addresses a member inside a track: the cycle index and the item
// index within that cycle. It is a plain value, so a saved Position never
// aliases cursor state.
type Position struct {
	Cycle int `json:"cycle_index"`
	Item  int `json:"item_index"`
}

// Pick is one organist handed out by a Cursor together with the cycle it
// was drawn from.
type Pick struct {
	Organist database.Organist
	CycleID  string
	Position Position
}

// Cursor is a round-robin iterator over the concatenation of one track's
// cycles. After the last member of the last cycle it wraps to the first
// member of the first cycle.
type Cursor struct {
	cycles []LoadedCycle
	pos    Position
}

// NewCursor creates a cursor positioned at start. An out-of-range start
// falls back to the first member of the first cycle.
func NewCursor(cycles []LoadedCycle, start Position) *Cursor {
	c := &Cursor{cycles: cycles}
	c.Restore(start)
	return c
}

// Next returns the member under the cursor and advances past it.
// It returns false only when the track has no members at all.
func (c *Cursor) Next() (Pick, bool) {
	for range c.cycles {
		cycle := c.cycles[c.pos.Cycle]
		if c.pos.Item >= len(cycle.Members) {
			c.advanceCycle()
			continue
		}

		pick := Pick{
			Organist: cycle.Members[c.pos.Item],
			CycleID:  cycle.ID,
			Position: c.pos,
		}

		c.pos.Item++
		if c.pos.Item >= len(cycle.Members) {
			c.advanceCycle()
		}
		return pick, true
	}
	return Pick{}, false
}

func (c *Cursor) advanceCycle() {
	c.pos.Item = 0
	c.pos.Cycle = (c.pos.Cycle + 1) % len(c.cycles)
}

// Save captures the current position.
func (c *Cursor) Save() Position {
	return c.pos
}

// Restore moves the cursor back to a saved position.
func (c *Cursor) Restore(p Position) {
	if p.Cycle < 0 || p.Cycle >= len(c.cycles) || p.Item < 0 || p.Item >= len(c.cycles[p.Cycle].Members) {
		p = Position{}
	}
	c.pos = p
}

// Len returns the number of members across all cycles of the track.
func (c *Cursor) Len() int {
	n := 0
	for _, cycle := range c.cycles {
		n += len(cycle.Members)
	}
	return n
}
