package checkers

import "fmt"

// Bytes encodes the board as a 192-bit big-endian integer. Cell i (i = x*8+y)
// occupies bits [3i, 3i+3) counted from the most significant end.
func (b Board) Bytes() [EncodedSize]byte {
	var out [EncodedSize]byte
	for i := 0; i < Cells; i++ {
		v := b[i/Size][i%Size].Bits()
		for k := 0; k < 3; k++ {
			if v&(0x04>>k) == 0 {
				continue
			}
			bit := 3*i + k
			out[bit/8] |= 0x80 >> (bit % 8)
		}
	}
	return out
}

// BoardFromBytes decodes the first EncodedSize bytes of raw.
func BoardFromBytes(raw []byte) (Board, error) {
	var b Board
	if len(raw) < EncodedSize {
		return b, fmt.Errorf("checkers: board needs %d bytes, got %d", EncodedSize, len(raw))
	}
	for i := 0; i < Cells; i++ {
		var v uint8
		for k := 0; k < 3; k++ {
			bit := 3*i + k
			if raw[bit/8]&(0x80>>(bit%8)) != 0 {
				v |= 0x04 >> k
			}
		}
		b[i/Size][i%Size] = CellFromBits(v)
	}
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (b Board) MarshalBinary() ([]byte, error) {
	raw := b.Bytes()
	return raw[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (b *Board) UnmarshalBinary(data []byte) error {
	decoded, err := BoardFromBytes(data)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}
