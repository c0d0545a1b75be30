package wire

import (
	"errors"
	"fmt"
)

var (
	ErrNotEnoughData = errors.New("wire: not enough data")
	ErrInvalidType   = errors.New("wire: invalid message type")
)

// Type is the leading tag byte of every message.
type Type uint8

const (
	TypeConnect            Type = 0x01
	TypeInvalidLogin       Type = 0x02
	TypeQueuePosition      Type = 0x03
	TypeGameStart          Type = 0x04
	TypeYourTurn           Type = 0x05
	TypeMakeMove           Type = 0x06
	TypeCompulsoryMove     Type = 0x07
	TypeInvalidMove        Type = 0x08
	TypeOpponentDisconnect Type = 0x09
	TypeGameOver           Type = 0x0A
	TypeReQueue            Type = 0x0B
	TypeLogOut             Type = 0x0C
	TypeInvalidVersion     Type = 0x0D
)

var typeNames = map[Type]string{
	TypeConnect:            "Connect",
	TypeInvalidLogin:       "InvalidLogin",
	TypeQueuePosition:      "QueuePosition",
	TypeGameStart:          "GameStart",
	TypeYourTurn:           "YourTurn",
	TypeMakeMove:           "MakeMove",
	TypeCompulsoryMove:     "CompulsoryMove",
	TypeInvalidMove:        "InvalidMove",
	TypeOpponentDisconnect: "OpponentDisconnect",
	TypeGameOver:           "GameOver",
	TypeReQueue:            "ReQueue",
	TypeLogOut:             "LogOut",
	TypeInvalidVersion:     "InvalidVersion",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(0x%02x)", uint8(t))
}

// LoginFailure is the reason byte carried by InvalidLogin.
type LoginFailure uint8

const (
	AccountDoesNotExist LoginFailure = 0
	InvalidPassword     LoginFailure = 1
	AlreadyLoggedIn     LoginFailure = 2
)

func (r LoginFailure) String() string {
	switch r {
	case AccountDoesNotExist:
		return "account does not exist"
	case InvalidPassword:
		return "invalid password"
	case AlreadyLoggedIn:
		return "already logged in"
	default:
		return fmt.Sprintf("LoginFailure(%d)", uint8(r))
	}
}
