package loaders

import (
	"image"
	"os"

	// Register the decoders for the formats textures ship in.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

type TextureLoader struct{}

// Load opens and decodes a texture image file. Decoding is delegated to the
// registered image decoders.
func (tl *TextureLoader) Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
