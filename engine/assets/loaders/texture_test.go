package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestLoadDecodesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")

	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tl := &TextureLoader{}
	img, err := tl.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", img.Bounds(), src.Bounds())
	}
}

func TestLoadDecodesBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.bmp")

	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	src.Set(3, 3, color.RGBA{G: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tl := &TextureLoader{}
	img, err := tl.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", img.Bounds(), src.Bounds())
	}
}

func TestLoadRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tl := &TextureLoader{}
	if _, err := tl.Load(path); err == nil {
		t.Error("expected decode error for non-image file")
	}
}
