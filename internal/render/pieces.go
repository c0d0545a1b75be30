package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceKey struct {
	owner    bool
	promoted bool
	size     int
}

func (r *BoardRenderer) pieceImage(c checkers.Cell, size int) (image.Image, error) {
	key := pieceKey{owner: c.Owner, promoted: c.Promoted, size: size}

	r.mu.RLock()
	if img, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return img, nil
	}
	r.mu.RUnlock()

	name := pieceAssetName(c)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}

	// pieces fill 84% of the square, centred
	inset := float64(size) * 0.08
	icon.SetTarget(inset, inset, float64(size)-2*inset, float64(size)-2*inset)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	r.mu.Lock()
	r.cache[key] = img
	r.mu.Unlock()
	return img, nil
}

// Owner=true pieces (the first seat) are light.
func pieceAssetName(c checkers.Cell) string {
	side := "dark"
	if c.Owner {
		side = "light"
	}
	kind := "man"
	if c.Promoted {
		kind = "king"
	}
	return fmt.Sprintf("assets/pieces/%s-%s.svg", side, kind)
}

// sanitizeSVG fixes style spellings oksvg rejects, such as "fill: #fff".
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixed
}
