package vault

import (
	"github.com/holiman/uint256"

	"liquidityVault/internal/model"
)

// Position is one live liquidity range.
type Position struct {
	TickLower int32
	TickUpper int32
	Liquidity *uint256.Int
	CreatedAt uint64
}

// locked reports whether the position is still inside the JIT window at now.
// A clock behind CreatedAt counts as locked.
func (p Position) locked(now, window uint64) bool {
	return now < p.CreatedAt || now-p.CreatedAt < window
}

func (p Position) model() model.Position {
	return model.Position{
		TickLower: p.TickLower,
		TickUpper: p.TickUpper,
		Liquidity: dec(p.Liquidity),
		CreatedAt: p.CreatedAt,
	}
}

type rangeKey struct {
	lower int32
	upper int32
}

// positionBook is an arena of positions with a lookup by tick range.
// Removing an entry compacts the arena in order, so every later index
// moves down by one.
type positionBook struct {
	entries []Position
	index   map[rangeKey]int
}

func newPositionBook() *positionBook {
	return &positionBook{index: make(map[rangeKey]int)}
}

func (b *positionBook) Len() int {
	return len(b.entries)
}

func (b *positionBook) At(i int) (Position, bool) {
	if i < 0 || i >= len(b.entries) {
		return Position{}, false
	}
	p := b.entries[i]
	p.Liquidity = p.Liquidity.Clone()
	return p, true
}

func (b *positionBook) Find(lower, upper int32) (int, bool) {
	i, ok := b.index[rangeKey{lower, upper}]
	return i, ok
}

// Add merges liquidity into the entry for the range or appends a new one.
// Merging keeps CreatedAt. Reduce drops emptied entries, so a range that is
// refilled after being emptied starts over with now as its CreatedAt.
// A new entry beyond max fails without touching the book.
func (b *positionBook) Add(lower, upper int32, liquidity *uint256.Int, now uint64, max int) error {
	if i, ok := b.index[rangeKey{lower, upper}]; ok {
		p := &b.entries[i]
		sum, overflow := new(uint256.Int).AddOverflow(p.Liquidity, liquidity)
		if overflow {
			return ErrArithmeticOverflow
		}
		p.Liquidity = sum
		return nil
	}
	if len(b.entries) >= max {
		return ErrPositionLengthExceedsLimit
	}
	b.entries = append(b.entries, Position{
		TickLower: lower,
		TickUpper: upper,
		Liquidity: liquidity.Clone(),
		CreatedAt: now,
	})
	b.index[rangeKey{lower, upper}] = len(b.entries) - 1
	return nil
}

// Reduce takes liquidity out of the entry at i and drops it when empty.
func (b *positionBook) Reduce(i int, liquidity *uint256.Int) error {
	if i < 0 || i >= len(b.entries) {
		return ErrPositionDoesNotExist
	}
	p := &b.entries[i]
	if p.Liquidity.Lt(liquidity) {
		return ErrInsufficientLiquidity
	}
	p.Liquidity = new(uint256.Int).Sub(p.Liquidity, liquidity)
	if !p.Liquidity.IsZero() {
		return nil
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.reindex()
	return nil
}

func (b *positionBook) reindex() {
	b.index = make(map[rangeKey]int, len(b.entries))
	for i, p := range b.entries {
		b.index[rangeKey{p.TickLower, p.TickUpper}] = i
	}
}

func (b *positionBook) clone() *positionBook {
	cp := &positionBook{
		entries: make([]Position, len(b.entries)),
		index:   make(map[rangeKey]int, len(b.index)),
	}
	for i, p := range b.entries {
		p.Liquidity = p.Liquidity.Clone()
		cp.entries[i] = p
	}
	for k, v := range b.index {
		cp.index[k] = v
	}
	return cp
}
