package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/park285/checkers-lobby/internal/checkers"
)

// NameSize is the fixed width of username, password and opponent name fields.
const NameSize = 16

const moveBoardSize = 1 + checkers.EncodedSize

// Message is implemented by the thirteen protocol records. Bodies have a fixed
// size per type; there is no length prefix on the wire.
type Message interface {
	Type() Type
	bodySize() int
	appendBody(dst []byte) []byte
}

type Connect struct {
	Version  uint8
	Username string
	Password string
}

type InvalidLogin struct {
	Reason LoginFailure
}

type InvalidVersion struct {
	Highest uint8
	Lowest  uint8
}

type QueuePosition struct {
	QueueSize uint32
	Position  uint32
	Rating    uint32
}

type GameStart struct {
	OpponentName   string
	OpponentRating uint32
}

type YourTurn struct {
	LastMove checkers.Move
	Board    checkers.Board
}

type MakeMove struct {
	Move checkers.Move
}

type CompulsoryMove struct {
	Move  checkers.Move
	Board checkers.Board
}

type InvalidMove struct {
	Move  checkers.Move
	Board checkers.Board
}

type OpponentDisconnect struct{}

type GameOver struct {
	Won       bool
	NewRating uint32
	OldRating uint32
	LastMove  checkers.Move
	Board     checkers.Board
}

type ReQueue struct{}

type LogOut struct{}

func (Connect) Type() Type            { return TypeConnect }
func (InvalidLogin) Type() Type       { return TypeInvalidLogin }
func (InvalidVersion) Type() Type     { return TypeInvalidVersion }
func (QueuePosition) Type() Type      { return TypeQueuePosition }
func (GameStart) Type() Type          { return TypeGameStart }
func (YourTurn) Type() Type           { return TypeYourTurn }
func (MakeMove) Type() Type           { return TypeMakeMove }
func (CompulsoryMove) Type() Type     { return TypeCompulsoryMove }
func (InvalidMove) Type() Type        { return TypeInvalidMove }
func (OpponentDisconnect) Type() Type { return TypeOpponentDisconnect }
func (GameOver) Type() Type           { return TypeGameOver }
func (ReQueue) Type() Type            { return TypeReQueue }
func (LogOut) Type() Type             { return TypeLogOut }

var bodySizes = map[Type]int{
	TypeConnect:            1 + 2*NameSize,
	TypeInvalidLogin:       1,
	TypeInvalidVersion:     2,
	TypeQueuePosition:      12,
	TypeGameStart:          NameSize + 4,
	TypeYourTurn:           moveBoardSize,
	TypeMakeMove:           1,
	TypeCompulsoryMove:     moveBoardSize,
	TypeInvalidMove:        moveBoardSize,
	TypeOpponentDisconnect: 0,
	TypeGameOver:           1 + 4 + 4 + moveBoardSize,
	TypeReQueue:            0,
	TypeLogOut:             0,
}

// BodySize returns the fixed body length of t and false for unknown tags.
func BodySize(t Type) (int, bool) {
	n, ok := bodySizes[t]
	return n, ok
}

func (m Connect) bodySize() int            { return bodySizes[TypeConnect] }
func (m InvalidLogin) bodySize() int       { return bodySizes[TypeInvalidLogin] }
func (m InvalidVersion) bodySize() int     { return bodySizes[TypeInvalidVersion] }
func (m QueuePosition) bodySize() int      { return bodySizes[TypeQueuePosition] }
func (m GameStart) bodySize() int          { return bodySizes[TypeGameStart] }
func (m YourTurn) bodySize() int           { return bodySizes[TypeYourTurn] }
func (m MakeMove) bodySize() int           { return bodySizes[TypeMakeMove] }
func (m CompulsoryMove) bodySize() int     { return bodySizes[TypeCompulsoryMove] }
func (m InvalidMove) bodySize() int        { return bodySizes[TypeInvalidMove] }
func (m OpponentDisconnect) bodySize() int { return 0 }
func (m GameOver) bodySize() int           { return bodySizes[TypeGameOver] }
func (m ReQueue) bodySize() int            { return 0 }
func (m LogOut) bodySize() int             { return 0 }

func (m Connect) appendBody(dst []byte) []byte {
	dst = append(dst, m.Version)
	dst = appendFixed(dst, m.Username, NameSize)
	return appendFixed(dst, m.Password, NameSize)
}

func (m InvalidLogin) appendBody(dst []byte) []byte { return append(dst, byte(m.Reason)) }

func (m InvalidVersion) appendBody(dst []byte) []byte { return append(dst, m.Highest, m.Lowest) }

func (m QueuePosition) appendBody(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, m.QueueSize)
	dst = binary.LittleEndian.AppendUint32(dst, m.Position)
	return binary.LittleEndian.AppendUint32(dst, m.Rating)
}

func (m GameStart) appendBody(dst []byte) []byte {
	dst = appendFixed(dst, m.OpponentName, NameSize)
	return binary.LittleEndian.AppendUint32(dst, m.OpponentRating)
}

func (m YourTurn) appendBody(dst []byte) []byte { return appendMoveBoard(dst, m.LastMove, m.Board) }

func (m MakeMove) appendBody(dst []byte) []byte { return append(dst, m.Move.Byte()) }

func (m CompulsoryMove) appendBody(dst []byte) []byte { return appendMoveBoard(dst, m.Move, m.Board) }

func (m InvalidMove) appendBody(dst []byte) []byte { return appendMoveBoard(dst, m.Move, m.Board) }

func (m OpponentDisconnect) appendBody(dst []byte) []byte { return dst }

func (m GameOver) appendBody(dst []byte) []byte {
	var won byte
	if m.Won {
		won = 1
	}
	dst = append(dst, won)
	dst = binary.LittleEndian.AppendUint32(dst, m.NewRating)
	dst = binary.LittleEndian.AppendUint32(dst, m.OldRating)
	return appendMoveBoard(dst, m.LastMove, m.Board)
}

func (m ReQueue) appendBody(dst []byte) []byte { return dst }

func (m LogOut) appendBody(dst []byte) []byte { return dst }

func appendMoveBoard(dst []byte, m checkers.Move, b checkers.Board) []byte {
	raw := b.Bytes()
	dst = append(dst, m.Byte())
	return append(dst, raw[:]...)
}

func readMoveBoard(body []byte) (checkers.Move, checkers.Board, error) {
	b, err := checkers.BoardFromBytes(body[1:])
	if err != nil {
		return checkers.Move{}, b, err
	}
	return checkers.MoveFromByte(body[0]), b, nil
}

// decodeBody builds a message of type t from a body of exactly its size.
func decodeBody(t Type, body []byte) (Message, error) {
	switch t {
	case TypeConnect:
		return Connect{
			Version:  body[0],
			Username: readFixed(body[1 : 1+NameSize]),
			Password: readFixed(body[1+NameSize : 1+2*NameSize]),
		}, nil
	case TypeInvalidLogin:
		return InvalidLogin{Reason: LoginFailure(body[0])}, nil
	case TypeInvalidVersion:
		return InvalidVersion{Highest: body[0], Lowest: body[1]}, nil
	case TypeQueuePosition:
		return QueuePosition{
			QueueSize: binary.LittleEndian.Uint32(body[0:4]),
			Position:  binary.LittleEndian.Uint32(body[4:8]),
			Rating:    binary.LittleEndian.Uint32(body[8:12]),
		}, nil
	case TypeGameStart:
		return GameStart{
			OpponentName:   readFixed(body[:NameSize]),
			OpponentRating: binary.LittleEndian.Uint32(body[NameSize : NameSize+4]),
		}, nil
	case TypeYourTurn:
		m, b, err := readMoveBoard(body)
		return YourTurn{LastMove: m, Board: b}, err
	case TypeMakeMove:
		return MakeMove{Move: checkers.MoveFromByte(body[0])}, nil
	case TypeCompulsoryMove:
		m, b, err := readMoveBoard(body)
		return CompulsoryMove{Move: m, Board: b}, err
	case TypeInvalidMove:
		m, b, err := readMoveBoard(body)
		return InvalidMove{Move: m, Board: b}, err
	case TypeOpponentDisconnect:
		return OpponentDisconnect{}, nil
	case TypeGameOver:
		m, b, err := readMoveBoard(body[9:])
		return GameOver{
			Won:       body[0] != 0,
			NewRating: binary.LittleEndian.Uint32(body[1:5]),
			OldRating: binary.LittleEndian.Uint32(body[5:9]),
			LastMove:  m,
			Board:     b,
		}, err
	case TypeReQueue:
		return ReQueue{}, nil
	case TypeLogOut:
		return LogOut{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidType, t)
}
