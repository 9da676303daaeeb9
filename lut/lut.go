// Package lut decodes a preset's lookup-texture images into the RGBA pixel
// data a BackendDriver uploads, the way engine/assets/loaders/texture.go
// decodes material textures for the renderer.
package lut

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/shaderforge/slangchain/common"
)

// Image is a decoded lookup texture: tightly packed, top-to-bottom RGBA8
// rows, ready for upload.
type Image struct {
	Size   common.Size
	Pixels []byte // len == Size.Width * Size.Height * 4
}

// Decode reads and decodes a lookup texture image file at path. PNG, JPEG
// and BMP are supported out of the box (the formats registered by this
// package's blank imports); anything else surfaces as a decode error.
func Decode(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lut: open %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("lut: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, width*height*4)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			pixels[i+0] = byte(r >> 8)
			pixels[i+1] = byte(g >> 8)
			pixels[i+2] = byte(b >> 8)
			pixels[i+3] = byte(a >> 8)
			i += 4
		}
	}

	return &Image{
		Size:   common.Size{Width: uint32(width), Height: uint32(height)},
		Pixels: pixels,
	}, nil
}
