package lut

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDecodePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lut.png")
	writeTestPNG(t, path, 4, 2, color.RGBA{R: 255, G: 128, B: 0, A: 255})

	img, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Size.Width != 4 || img.Size.Height != 2 {
		t.Fatalf("expected 4x2, got %dx%d", img.Size.Width, img.Size.Height)
	}
	if len(img.Pixels) != 4*2*4 {
		t.Fatalf("expected %d bytes, got %d", 4*2*4, len(img.Pixels))
	}
	if img.Pixels[0] != 255 || img.Pixels[1] != 128 || img.Pixels[2] != 0 || img.Pixels[3] != 255 {
		t.Fatalf("unexpected first pixel: %v", img.Pixels[:4])
	}
}

func TestDecodeMissingFile(t *testing.T) {
	if _, err := Decode("/nonexistent/path/lut.png"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
