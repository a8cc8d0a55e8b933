package images

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// schemes are the gradient color pairs (top, bottom) cycled by scene index.
// The same index always yields the same card.
var schemes = [8][2]color.RGBA{
	{{139, 69, 19, 255}, {255, 215, 0, 255}},
	{{25, 25, 112, 255}, {138, 43, 226, 255}},
	{{0, 100, 0, 255}, {255, 165, 0, 255}},
	{{128, 0, 0, 255}, {255, 215, 0, 255}},
	{{0, 0, 139, 255}, {135, 206, 235, 255}},
	{{80, 20, 120, 255}, {255, 200, 0, 255}},
	{{20, 80, 40, 255}, {255, 140, 0, 255}},
	{{100, 0, 50, 255}, {255, 220, 100, 255}},
}

// Placeholder renders the deterministic gradient card for one scene index,
// labeled with the scene number.
func Placeholder(index, width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	pair := schemes[index%len(schemes)]

	for y := 0; y < height; y++ {
		t := float64(y) / float64(height)
		c := color.RGBA{
			R: lerp(pair[0].R, pair[1].R, t),
			G: lerp(pair[0].G, pair[1].G, t),
			B: lerp(pair[0].B, pair[1].B, t),
			A: 255,
		}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	if err := drawLabel(img, fmt.Sprintf("Scene %d", index+1)); err != nil {
		return nil, err
	}
	return img, nil
}

// SavePlaceholder renders and writes the card for one index as PNG.
func SavePlaceholder(index, width, height int, path string) error {
	img, err := Placeholder(index, width, height)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// drawLabel centers the text with a small drop shadow so it stays readable
// on both light and dark gradients.
func drawLabel(img *image.RGBA, text string) error {
	ft, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return err
	}

	size := float64(img.Bounds().Dx()) / 8
	if size < 16 {
		size = 16
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{20, 20, 20, 255}),
		Face: face,
	}
	width := d.MeasureString(text)
	x := (fixed.I(img.Bounds().Dx()) - width) / 2
	y := fixed.I(img.Bounds().Dy() / 2)
	offset := fixed.I(3)

	d.Dot = fixed.Point26_6{X: x + offset, Y: y + offset}
	d.DrawString(text)

	d.Src = image.NewUniform(color.White)
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(text)
	return nil
}
