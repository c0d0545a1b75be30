package checkers

import "fmt"

// Direction is a single diagonal component. It is one bit on the wire.
type Direction uint8

const (
	Negative Direction = 0
	Positive Direction = 1
)

// Delta returns -1 or +1.
func (d Direction) Delta() int {
	if d == Positive {
		return 1
	}
	return -1
}

func (d Direction) String() string {
	if d == Positive {
		return "positive"
	}
	return "negative"
}

// Pos is a board coordinate. It may lie outside the board.
type Pos struct {
	X int
	Y int
}

// InBounds reports whether p addresses a square of the 8x8 board.
func (p Pos) InBounds() bool {
	return p.X >= 0 && p.X < Size && p.Y >= 0 && p.Y < Size
}

// Move selects a piece and a diagonal direction. A capture is expressed by the
// same move; the board decides whether it is a step or a jump.
type Move struct {
	X    uint8
	Y    uint8
	XDir Direction
	YDir Direction
}

// FirstMove is the sentinel "last move" handed to the first player of a game.
var FirstMove = Move{X: 0, Y: 0, XDir: Negative, YDir: Negative}

// NewMove builds a move from int coordinates; values are masked to 3 bits.
func NewMove(x, y int, xDir, yDir Direction) Move {
	return Move{X: uint8(x) & 0x07, Y: uint8(y) & 0x07, XDir: xDir & 0x01, YDir: yDir & 0x01}
}

// MoveFromByte decodes the 1-byte wire form (x<<5 | y<<2 | xDir<<1 | yDir).
func MoveFromByte(b byte) Move {
	return Move{
		X:    (b >> 5) & 0x07,
		Y:    (b >> 2) & 0x07,
		XDir: Direction((b >> 1) & 0x01),
		YDir: Direction(b & 0x01),
	}
}

// Byte encodes the move into its 1-byte wire form.
func (m Move) Byte() byte {
	return (m.X&0x07)<<5 | (m.Y&0x07)<<2 | (byte(m.XDir)&0x01)<<1 | byte(m.YDir)&0x01
}

// Pos is the square the moving piece starts on.
func (m Move) Pos() Pos { return Pos{X: int(m.X), Y: int(m.Y)} }

// AfterMove is the square one diagonal step away.
func (m Move) AfterMove() Pos {
	return Pos{X: int(m.X) + m.XDir.Delta(), Y: int(m.Y) + m.YDir.Delta()}
}

// AfterDoubleMove is the landing square of a capture.
func (m Move) AfterDoubleMove() Pos {
	return Pos{X: int(m.X) + 2*m.XDir.Delta(), Y: int(m.Y) + 2*m.YDir.Delta()}
}

// String renders 1-based coordinates, matching what a player types.
func (m Move) String() string {
	to := m.AfterMove()
	return fmt.Sprintf("(%d, %d) -> (%d, %d)", m.X+1, m.Y+1, to.X+1, to.Y+1)
}

var allDirections = [4][2]Direction{
	{Positive, Positive},
	{Positive, Negative},
	{Negative, Positive},
	{Negative, Negative},
}
