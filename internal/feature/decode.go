package feature

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// LoadImage decodes a JPEG or PNG image from disk.
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %q: %w", path, err)
	}
	return img, nil
}

// grayImage is a float32 luminance plane.
type grayImage struct {
	w, h int
	pix  []float32
}

func newGray(img image.Image) *grayImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := &grayImage{w: w, h: h, pix: make([]float32, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Rec. 601 luma on 16-bit channel values.
			g.pix[y*w+x] = (0.299*float32(r) + 0.587*float32(gr) + 0.114*float32(b)) / 65535.0
		}
	}
	return g
}

func (g *grayImage) at(x, y int) float32 {
	return g.pix[y*g.w+x]
}

// downscale reduces the image by an integer factor using box averaging.
func (g *grayImage) downscale(factor int) *grayImage {
	if factor <= 1 {
		return g
	}
	w := g.w / factor
	h := g.h / factor
	out := &grayImage{w: w, h: h, pix: make([]float32, w*h)}
	norm := float32(factor * factor)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float32
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					sum += g.at(x*factor+dx, y*factor+dy)
				}
			}
			out.pix[y*w+x] = sum / norm
		}
	}
	return out
}
