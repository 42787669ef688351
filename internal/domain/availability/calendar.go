package availability

import (
	"time"

	"weekrent/internal/domain/properties"
	"weekrent/internal/domain/shared/daterange"
)

type BlockSource string

const (
	SourceBooking      BlockSource = "BOOKING"
	SourceExternalFeed BlockSource = "EXTERNAL_FEED"
)

// Block is one booked range. The source is kept for display only; segmentation ignores it.
type Block struct {
	Range     daterange.DateRange
	Source    BlockSource
	Reference string
}

// Calendar is the read model a property's availability is derived from.
type Calendar struct {
	PropertyID properties.PropertyID
	Window     daterange.DateRange
	Blocks     []Block
}

func NewCalendar(id properties.PropertyID, window daterange.DateRange) *Calendar {
	return &Calendar{PropertyID: id, Window: window}
}

func (c *Calendar) AddBooking(bookingID string, r daterange.DateRange) {
	c.add(Block{Range: r, Source: SourceBooking, Reference: bookingID})
}

func (c *Calendar) AddExternal(uid string, r daterange.DateRange) {
	c.add(Block{Range: r, Source: SourceExternalFeed, Reference: uid})
}

func (c *Calendar) add(block Block) {
	if block.Range.Empty() {
		return
	}
	c.Blocks = append(c.Blocks, block)
}

func (c *Calendar) BookedRanges() []daterange.DateRange {
	out := make([]daterange.DateRange, 0, len(c.Blocks))
	for _, block := range c.Blocks {
		out = append(out, block.Range)
	}
	return out
}

func (c *Calendar) Segments() []daterange.DateRange {
	return Segments(c.Window, c.BookedRanges())
}

// CanReserve reports whether r lies inside the window and overlaps no block.
func (c *Calendar) CanReserve(r daterange.DateRange) bool {
	if r.Empty() || c.Window.Empty() || !c.Window.Contains(r) {
		return false
	}
	for _, block := range c.Blocks {
		if block.Range.Overlaps(r) {
			return false
		}
	}
	return true
}

// Without returns a copy of the calendar with the block for reference removed.
func (c *Calendar) Without(reference string) *Calendar {
	out := &Calendar{PropertyID: c.PropertyID, Window: c.Window, Blocks: make([]Block, 0, len(c.Blocks))}
	for _, block := range c.Blocks {
		if block.Reference == reference {
			continue
		}
		out.Blocks = append(out.Blocks, block)
	}
	return out
}

// Selection starts a date-picker session over the current segments.
func (c *Calendar) Selection(today time.Time, policy StayPolicy) *Selection {
	return NewSelection(c.Segments(), today, policy)
}
