package checkers

import (
	"errors"
	"fmt"
)

const (
	// Size is the board edge length.
	Size = 8
	// Cells is the number of squares on the board.
	Cells = Size * Size
	// EncodedSize is the byte length of an encoded board (64 cells x 3 bits).
	EncodedSize = Cells * 3 / 8
	// PiecesPerSide is the number of men each seat starts with.
	PiecesPerSide = 12
)

var ErrInvalidMove = errors.New("checkers: invalid move")

// Cell is one square. Promoted and Owner carry no meaning when Used is false.
type Cell struct {
	Used     bool
	Promoted bool
	Owner    bool
}

// Bits packs the cell as used<<2 | promoted<<1 | owner.
func (c Cell) Bits() uint8 {
	var v uint8
	if c.Used {
		v |= 0x04
	}
	if c.Promoted {
		v |= 0x02
	}
	if c.Owner {
		v |= 0x01
	}
	return v
}

// CellFromBits is the inverse of Cell.Bits; only the low 3 bits are read.
func CellFromBits(v uint8) Cell {
	return Cell{Used: v&0x04 != 0, Promoted: v&0x02 != 0, Owner: v&0x01 != 0}
}

// Board is indexed [x][y]. It is a plain value: assignment copies it, which is
// what speculative move probing relies on.
type Board [Size][Size]Cell

// GenerateGameStart places twelve men per side on alternating squares. The
// owner=true side occupies rows 5..7 and moves toward row 0.
func GenerateGameStart() Board {
	var b Board
	for i := 0; i < PiecesPerSide; i++ {
		row := i / 4
		b[(i%4)*2+row%2][row] = Cell{Used: true}
		b[(i%4)*2+(row+1)%2][Size-1-row] = Cell{Used: true, Owner: true}
	}
	return b
}

// At returns the cell at p and whether p is on the board.
func (b *Board) At(p Pos) (Cell, bool) {
	if !p.InBounds() {
		return Cell{}, false
	}
	return b[p.X][p.Y], true
}

func (b *Board) set(p Pos, c Cell) { b[p.X][p.Y] = c }

// ApplyMove validates and applies m for the seat identified by primary. Pieces
// that are not promoted may only travel in allowedY. Any violation returns
// ErrInvalidMove and leaves the board untouched.
func (b *Board) ApplyMove(m Move, allowedY Direction, primary bool) error {
	start, ok := b.At(m.Pos())
	if !ok {
		return fmt.Errorf("%w: start %v off board", ErrInvalidMove, m.Pos())
	}
	step, ok := b.At(m.AfterMove())
	if !ok {
		return fmt.Errorf("%w: %v leaves the board", ErrInvalidMove, m)
	}
	if !start.Promoted && m.YDir != allowedY {
		return fmt.Errorf("%w: %v moves backwards", ErrInvalidMove, m)
	}
	if start.Owner != primary {
		return fmt.Errorf("%w: %v moves an opponent piece", ErrInvalidMove, m)
	}
	if !start.Used {
		return fmt.Errorf("%w: %v starts on an empty square", ErrInvalidMove, m)
	}
	if step.Used {
		if step.Owner == start.Owner {
			return fmt.Errorf("%w: %v blocked by own piece", ErrInvalidMove, m)
		}
		landing, ok := b.At(m.AfterDoubleMove())
		if !ok || landing.Used {
			return fmt.Errorf("%w: %v capture is blocked", ErrInvalidMove, m)
		}
	}
	b.applyUnchecked(m)
	return nil
}

func (b *Board) applyUnchecked(m Move) {
	from := m.Pos()
	piece := b[from.X][from.Y]
	b.set(from, Cell{})

	dest := m.AfterMove()
	if b[dest.X][dest.Y].Used {
		b.set(dest, Cell{})
		dest = m.AfterDoubleMove()
	}
	if dest.Y == 0 || dest.Y == Size-1 {
		piece = Cell{Used: true, Promoted: true, Owner: piece.Owner}
	}
	b.set(dest, piece)
}

// PossibleMoves lists every move of the seat that ApplyMove would accept.
func (b Board) PossibleMoves(allowedY Direction, primary bool) []Move {
	var out []Move
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			c := b[x][y]
			if !c.Used || c.Owner != primary {
				continue
			}
			for _, d := range allDirections {
				m := NewMove(x, y, d[0], d[1])
				probe := b
				if err := probe.ApplyMove(m, allowedY, primary); err == nil {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// RequiredMoves filters PossibleMoves down to captures.
func (b Board) RequiredMoves(allowedY Direction, primary bool) []Move {
	var out []Move
	for _, m := range b.PossibleMoves(allowedY, primary) {
		if b.isCapture(m, primary) {
			out = append(out, m)
		}
	}
	return out
}

func (b *Board) isCapture(m Move, primary bool) bool {
	step, ok := b.At(m.AfterMove())
	if !ok {
		return false
	}
	landing, ok := b.At(m.AfterDoubleMove())
	if !ok {
		return false
	}
	return step.Used && step.Owner != primary && !landing.Used
}

// CheckGameOver reports whether every piece left belongs to the given side.
func (b Board) CheckGameOver(primary bool) bool {
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			if c := b[x][y]; c.Used && c.Owner != primary {
				return false
			}
		}
	}
	return true
}

// Translate returns the view of the other seat: ownership flips on used cells
// and unused cells are normalised to owner=false.
func (b Board) Translate() Board {
	var out Board
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			c := b[x][y]
			if c.Used {
				out[x][y] = Cell{Used: true, Promoted: c.Promoted, Owner: !c.Owner}
			}
		}
	}
	return out
}

// Count returns the number of pieces owned by the given side.
func (b Board) Count(owner bool) int {
	n := 0
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			if c := b[x][y]; c.Used && c.Owner == owner {
				n++
			}
		}
	}
	return n
}
