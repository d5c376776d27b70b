package utils

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/setanarut/mgflow"
	"golang.org/x/image/bmp"
)

// ReadImage decodes a PNG or BMP file.
func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// GrayGrid converts img to luminance samples in [0, 1]. Row i of the grid is
// image row Min.Y+i.
func GrayGrid(img image.Image) *mgflow.Grid {
	b := img.Bounds()
	g := mgflow.NewGrid(b.Dy(), b.Dx(), 0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			g.Set(y-b.Min.Y, x-b.Min.X, float64(c.Y)/65535.0)
		}
	}
	return g
}

// ReadGrayGrid reads a frame as luminance samples in [0, 1].
func ReadGrayGrid(path string) (*mgflow.Grid, error) {
	img, err := ReadImage(path)
	if err != nil {
		return nil, err
	}
	return GrayGrid(img), nil
}

// GridImage maps samples in [-1, 1] linearly to 8-bit gray, clamping values
// outside the range.
func GridImage(g *mgflow.Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Cols(), g.Rows()))
	for i := range g.Rows() {
		for j := range g.Cols() {
			v := (g.At(i, j) + 1) / 2 * 255
			img.SetGray(j, i, color.Gray{Y: uint8(max(0, min(255, v+0.5)))})
		}
	}
	return img
}

// WriteGridImage writes g as a gray image; the encoder follows the extension
// (.bmp or .png).
func WriteGridImage(g *mgflow.Grid, path string) error {
	return SaveImage(GridImage(g), path)
}

// WriteFlow writes the two flow components to pathU and pathV.
func WriteFlow(flow *mgflow.FlowField, pathU, pathV string) error {
	if err := WriteGridImage(flow.U, pathU); err != nil {
		return err
	}
	return WriteGridImage(flow.V, pathV)
}

func SaveImage(img image.Image, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".png" && ext != ".bmp" {
		return fmt.Errorf("unsupported image extension %q", ext)
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if ext == ".bmp" {
		return bmp.Encode(f, img)
	}
	return png.Encode(f, img)
}
