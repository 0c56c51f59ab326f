// Package raster decodes uploaded hazard map images and reduces them to a
// grid of colour-derived risk scores.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// ErrDecode marks every failure to turn the uploaded bytes into pixels.
var ErrDecode = errors.New("image decode failed")

// ErrInvalidGrid is returned when rows or cols is outside [1, MaxGridDim].
var ErrInvalidGrid = errors.New("invalid grid dimensions")

// MaxGridDim is the largest number of rows or cols Sample accepts.
const MaxGridDim = 256

// sampleStride is the pixel step inside a cell: every 4th pixel of the
// flattened RGBA buffer (16 bytes).
const sampleStride = 4

// DecodeError wraps the underlying decoder error. errors.Is(err, ErrDecode)
// reports true for every DecodeError.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// Cell is the colour-derived score of one grid cell.
type Cell struct {
	Row   int
	Col   int
	Score int
}

// ID returns the "row-col" identifier shared with domain.GridChunk.
func (c Cell) ID() string {
	return fmt.Sprintf("%d-%d", c.Row, c.Col)
}

// Grid is the raw sampled risk grid in row-major order.
type Grid struct {
	Rows    int
	Cols    int
	Cells   []Cell
	Average int
}

// At returns the cell at (row, col).
func (g Grid) At(row, col int) Cell {
	return g.Cells[row*g.Cols+col]
}

// Decode reads PNG, JPEG, GIF, WebP, BMP or TIFF bytes and returns the image
// converted to RGBA along with the format name.
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Err: errors.New("empty image")}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}

	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, format, &DecodeError{Err: fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())}
	}

	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba, format, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, format, nil
}

// Sample partitions img into rows*cols equal cells (floor division, edge
// remainder dropped), averages every 4th pixel of each cell and scores the
// average with domain.EstimateColorRisk.
func Sample(img *image.RGBA, rows, cols int) (Grid, error) {
	if rows < 1 || cols < 1 || rows > MaxGridDim || cols > MaxGridDim {
		return Grid{}, fmt.Errorf("%w: got %dx%d, want 1..%d per axis", ErrInvalidGrid, rows, cols, MaxGridDim)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw := max(1, w/cols)
	ch := max(1, h/rows)

	grid := Grid{Rows: rows, Cols: cols, Cells: make([]Cell, 0, rows*cols)}
	total := 0
	for r := range rows {
		for c := range cols {
			cell := cellRect(b, c*cw, r*ch, cw, ch)
			red, green, blue := averageColor(img, cell)
			score := domain.EstimateColorRisk(red, green, blue)
			grid.Cells = append(grid.Cells, Cell{Row: r, Col: c, Score: score})
			total += score
		}
	}
	grid.Average = int(math.Round(float64(total) / float64(rows*cols)))

	return grid, nil
}

// SampleBytes decodes data and samples it in one step.
func SampleBytes(data []byte, rows, cols int) (Grid, error) {
	img, _, err := Decode(data)
	if err != nil {
		return Grid{}, err
	}
	return Sample(img, rows, cols)
}

// cellRect returns the cell rectangle clipped to bounds. Cells that fall
// entirely outside a tiny image collapse onto its last pixel so every cell
// still has a sample.
func cellRect(bounds image.Rectangle, x, y, w, h int) image.Rectangle {
	x = min(x, bounds.Dx()-1)
	y = min(y, bounds.Dy()-1)
	r := image.Rect(x, y, x+w, y+h).Add(bounds.Min)
	return r.Intersect(bounds)
}

func averageColor(img *image.RGBA, cell image.Rectangle) (r, g, b float64) {
	cw := cell.Dx()
	n := cw * cell.Dy()

	var sumR, sumG, sumB, count float64
	for k := 0; k < n; k += sampleStride {
		x := cell.Min.X + k%cw
		y := cell.Min.Y + k/cw
		off := img.PixOffset(x, y)
		sumR += float64(img.Pix[off])
		sumG += float64(img.Pix[off+1])
		sumB += float64(img.Pix[off+2])
		count++
	}
	if count == 0 {
		return 0, 0, 0
	}
	return sumR / count, sumG / count, sumB / count
}
