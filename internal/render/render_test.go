package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func assertNear(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()
	r, g, b, _ := got.RGBA()
	near := func(a uint8, b uint32) bool {
		d := int(a) - int(b>>8)
		return d > -12 && d < 12
	}
	assert.True(t, near(want.R, r) && near(want.G, g) && near(want.B, b), "want %v got %v", want, got)
}

func pixelAt(img image.Image, l layout, p checkers.Pos) color.Color {
	rc := l.squareRect(p)
	return img.At(rc.Min.X+l.square/2, rc.Min.Y+l.square/2)
}

var (
	lightMan = color.RGBA{0xf2, 0xe6, 0xc9, 255}
	darkMan  = color.RGBA{0xb2, 0x22, 0x22, 255}
)

func TestRenderStartPosition(t *testing.T) {
	r := NewBoardRenderer(WithSquareSize(48))
	raw, err := r.RenderPNG(context.Background(), checkers.GenerateGameStart(), Options{})
	require.NoError(t, err)

	img := decode(t, raw)
	l := r.layout(Options{})
	assert.Equal(t, l.size, img.Bounds().Size())
	assert.Equal(t, image.Pt(48*8+48, 48*8+48), img.Bounds().Size())

	assertNear(t, lightMan, pixelAt(img, l, checkers.Pos{X: 1, Y: 7}))
	assertNear(t, darkMan, pixelAt(img, l, checkers.Pos{X: 0, Y: 0}))
	assertNear(t, darkSquare, pixelAt(img, l, checkers.Pos{X: 0, Y: 4}))
	assertNear(t, lightSquare, pixelAt(img, l, checkers.Pos{X: 1, Y: 4}))

	// one light man and one dark man at this size
	assert.Len(t, r.cache, 2)
}

func TestRenderSecondaryPerspective(t *testing.T) {
	r := NewBoardRenderer(WithSquareSize(48))
	opts := Options{Perspective: PerspectiveSecondary}
	raw, err := r.RenderPNG(context.Background(), checkers.GenerateGameStart(), opts)
	require.NoError(t, err)

	img := decode(t, raw)
	l := r.layout(opts)
	top := l.squareRect(checkers.Pos{X: 1, Y: 7})
	assert.Equal(t, l.origin.Y, top.Min.Y, "primary back row is drawn on top")
	assertNear(t, lightMan, pixelAt(img, l, checkers.Pos{X: 1, Y: 7}))
}

func TestRenderTitleAndLastMove(t *testing.T) {
	var b checkers.Board
	b[3][3] = checkers.Cell{Used: true, Promoted: true, Owner: true}
	last := checkers.NewMove(5, 5, checkers.Negative, checkers.Negative)

	r := NewBoardRenderer()
	plain, err := r.RenderPNG(context.Background(), b, Options{})
	require.NoError(t, err)
	opts := Options{Title: "cam vs jen", LastMove: &last}
	titled, err := r.RenderPNG(context.Background(), b, opts)
	require.NoError(t, err)

	assert.Greater(t, decode(t, titled).Bounds().Dy(), decode(t, plain).Bounds().Dy())

	img := decode(t, titled)
	l := r.layout(opts)
	from := pixelAt(img, l, checkers.Pos{X: 5, Y: 5})
	assert.NotEqual(t, color.RGBAModel.Convert(darkSquare), color.RGBAModel.Convert(from), "start square is highlighted")
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBoardRenderer().RenderPNG(ctx, checkers.GenerateGameStart(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPieceAssetsParse(t *testing.T) {
	r := NewBoardRenderer()
	for _, c := range []checkers.Cell{
		{Used: true},
		{Used: true, Owner: true},
		{Used: true, Promoted: true},
		{Used: true, Promoted: true, Owner: true},
	} {
		img, err := r.pieceImage(c, 32)
		require.NoError(t, err, pieceAssetName(c))
		assert.Equal(t, 32, img.Bounds().Dx())
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	face := basicfont.Face7x13
	assert.Equal(t, "abc", truncateWithEllipsis(face, "abc", 100))
	assert.Equal(t, "abcd...", truncateWithEllipsis(face, "abcdefghij", 7*7))
	assert.Equal(t, "", truncateWithEllipsis(face, "abcdefghij", 10))
}
