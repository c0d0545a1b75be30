package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessages() []Message {
	start := checkers.GenerateGameStart()
	move := checkers.NewMove(1, 2, checkers.Negative, checkers.Positive)
	return []Message{
		Connect{Version: 1, Username: "username", Password: "password"},
		Connect{Version: 7, Username: "sixteen-chars-xx", Password: ""},
		InvalidLogin{Reason: AlreadyLoggedIn},
		InvalidVersion{Highest: 3, Lowest: 1},
		QueuePosition{QueueSize: 1, Position: 2, Rating: 3},
		GameStart{OpponentName: "jen", OpponentRating: 1201},
		YourTurn{LastMove: checkers.FirstMove, Board: start},
		MakeMove{Move: move},
		CompulsoryMove{Move: move, Board: start.Translate()},
		InvalidMove{Move: move, Board: start},
		OpponentDisconnect{},
		GameOver{Won: true, NewRating: 1210, OldRating: 1200, LastMove: move, Board: start},
		GameOver{Won: false, NewRating: 1190, OldRating: 1200, LastMove: move, Board: checkers.Board{}},
		ReQueue{},
		LogOut{},
	}
}

func TestEncodeVectors(t *testing.T) {
	connect := Encode(Connect{Version: 1, Username: "username", Password: "password"})
	want := append([]byte("\x01\x01username"), make([]byte, 8)...)
	want = append(want, []byte("password")...)
	want = append(want, make([]byte, 8)...)
	assert.Equal(t, want, connect)

	assert.Equal(t, []byte("\x03\x01\x00\x00\x00\x02\x00\x00\x00\x03\x00\x00\x00"),
		Encode(QueuePosition{QueueSize: 1, Position: 2, Rating: 3}))
	assert.Equal(t, []byte{0x02, 0x01}, Encode(InvalidLogin{Reason: InvalidPassword}))
	assert.Equal(t, []byte{0x0D, 0x01, 0x01}, Encode(InvalidVersion{Highest: 1, Lowest: 1}))
	assert.Equal(t, []byte{0x06, 0x29}, Encode(MakeMove{Move: checkers.NewMove(1, 2, checkers.Negative, checkers.Positive)}))
	assert.Equal(t, []byte{0x0C}, Encode(LogOut{}))
	assert.Equal(t, []byte{0x09}, Encode(OpponentDisconnect{}))
}

func TestRoundTrip(t *testing.T) {
	for _, m := range sampleMessages() {
		t.Run(m.Type().String(), func(t *testing.T) {
			raw := Encode(m)
			size, ok := BodySize(m.Type())
			require.True(t, ok)
			require.Len(t, raw, 1+size)

			got, err := Decode(m.Type(), raw)
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	for _, m := range sampleMessages() {
		raw := Encode(m)
		_, err := Decode(m.Type(), raw[:len(raw)-1])
		assert.ErrorIs(t, err, ErrNotEnoughData, m.Type().String())
	}
}

func TestDecodeWrongTag(t *testing.T) {
	for _, m := range sampleMessages() {
		raw := Encode(m)
		raw[0] = byte(m.Type()%13) + 1
		_, err := Decode(m.Type(), raw)
		assert.ErrorIs(t, err, ErrInvalidType, m.Type().String())
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, _, err := DecodeNext([]byte{0x7F, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = Decode(Type(0), []byte{0})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestStringFieldsStripAtFirstZero(t *testing.T) {
	raw := Encode(GameStart{OpponentName: "cam", OpponentRating: 5})
	raw[1+5] = 'z'
	got, err := Decode(TypeGameStart, raw)
	require.NoError(t, err)
	assert.Equal(t, "cam", got.(GameStart).OpponentName)

	long := Encode(Connect{Version: 1, Username: "a-very-long-username-here", Password: "pw"})
	got, err = Decode(TypeConnect, long)
	require.NoError(t, err)
	assert.Equal(t, "a-very-long-user", got.(Connect).Username)
}

func TestDecodeStream(t *testing.T) {
	var buf []byte
	for _, m := range sampleMessages() {
		buf = append(buf, Encode(m)...)
	}
	partial := Encode(YourTurn{LastMove: checkers.FirstMove, Board: checkers.GenerateGameStart()})
	buf = append(buf, partial[:10]...)

	msgs, rest, err := DecodeStream(buf)
	require.NoError(t, err)
	assert.Equal(t, sampleMessages(), msgs)
	assert.Equal(t, partial[:10], rest)

	msgs, rest, err = DecodeStream(append(rest, partial[10:]...))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Empty(t, rest)
}

func TestDecodeStreamBadTag(t *testing.T) {
	buf := append(Encode(LogOut{}), 0xEE)
	msgs, rest, err := DecodeStream(buf)
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Equal(t, []Message{LogOut{}}, msgs)
	assert.Equal(t, []byte{0xEE}, rest)
}

func TestReader(t *testing.T) {
	var buf bytes.Buffer
	for _, m := range sampleMessages() {
		buf.Write(Encode(m))
	}
	r := NewReader(&buf)
	for _, want := range sampleMessages() {
		got, err := r.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderTruncated(t *testing.T) {
	raw := Encode(QueuePosition{QueueSize: 1, Position: 1, Rating: 1200})
	r := NewReader(bytes.NewReader(raw[:5]))
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, ErrNotEnoughData)

	r = NewReader(bytes.NewReader([]byte{0x42}))
	_, err = r.ReadMessage()
	assert.ErrorIs(t, err, ErrInvalidType)
}
