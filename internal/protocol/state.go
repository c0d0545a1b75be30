// Package protocol holds what the client and server state machines share: the
// five protocol states and the version negotiation constants.
package protocol

import "fmt"

type State uint8

const (
	Unauthenticated State = iota
	InQueue
	ProcessingGameState
	UserMove
	GameEnd
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case InQueue:
		return "IN_QUEUE"
	case ProcessingGameState:
		return "PROCESSING_GAME_STATE"
	case UserMove:
		return "USER_MOVE"
	case GameEnd:
		return "GAME_END"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Version is the protocol version spoken by this build.
const Version uint8 = 1

// SupportedVersions lists the versions the server accepts, ascending.
var SupportedVersions = []uint8{Version}

// IsSupported reports whether v is in SupportedVersions.
func IsSupported(v uint8) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}

// VersionRange returns the lowest and highest supported versions.
func VersionRange() (lowest, highest uint8) {
	lowest, highest = SupportedVersions[0], SupportedVersions[0]
	for _, v := range SupportedVersions[1:] {
		if v < lowest {
			lowest = v
		}
		if v > highest {
			highest = v
		}
	}
	return lowest, highest
}
