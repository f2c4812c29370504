package feature

import (
	"image"
	"math"
	"sort"
)

// descriptor geometry: 4x4 cells of 8 orientation bins over a 16x16 patch.
const (
	descriptorDim   = 128
	patchRadius     = 8
	harrisK         = 0.04
	responseQuantum = 1e-6
)

// ExtractOptions controls the CPU extractor.
type ExtractOptions struct {
	// MaxFeatures bounds the keypoints kept per image, strongest first.
	MaxFeatures int
	// MaxImageSize downscales images whose longer edge exceeds it.
	MaxImageSize int
}

// Extract detects corners and computes their descriptors.
func Extract(img image.Image, opts ExtractOptions) ([]Keypoint, Descriptors) {
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = 8192
	}

	gray := newGray(img)
	scale := 1
	if opts.MaxImageSize > 0 {
		for longerEdge(gray)/scale > opts.MaxImageSize {
			scale *= 2
		}
	}
	gray = gray.downscale(scale)

	candidates := harrisCorners(gray)
	if len(candidates) > opts.MaxFeatures {
		candidates = candidates[:opts.MaxFeatures]
	}

	keypoints := make([]Keypoint, 0, len(candidates))
	descriptors := Descriptors{Dim: descriptorDim, Data: make([]float32, 0, len(candidates)*descriptorDim)}
	for _, c := range candidates {
		orientation := dominantOrientation(gray, c.x, c.y)
		desc := describePatch(gray, c.x, c.y, orientation)
		if desc == nil {
			continue
		}
		keypoints = append(keypoints, Keypoint{
			X:           float32(c.x * scale),
			Y:           float32(c.y * scale),
			Scale:       float32(scale),
			Orientation: orientation,
		})
		descriptors.Data = append(descriptors.Data, desc...)
	}
	descriptors.Rows = len(keypoints)
	return keypoints, descriptors
}

func longerEdge(g *grayImage) int {
	if g.w > g.h {
		return g.w
	}
	return g.h
}

type corner struct {
	x, y     int
	response float32
}

// harrisCorners scores every interior pixel and returns non-maximum-
// suppressed corners sorted by descending response.
func harrisCorners(g *grayImage) []corner {
	if g.w < 2*patchRadius+3 || g.h < 2*patchRadius+3 {
		return nil
	}

	gx := make([]float32, g.w*g.h)
	gy := make([]float32, g.w*g.h)
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			gx[y*g.w+x] = (g.at(x+1, y) - g.at(x-1, y)) / 2
			gy[y*g.w+x] = (g.at(x, y+1) - g.at(x, y-1)) / 2
		}
	}

	response := make([]float32, g.w*g.h)
	for y := patchRadius; y < g.h-patchRadius; y++ {
		for x := patchRadius; x < g.w-patchRadius; x++ {
			var sxx, syy, sxy float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					i := (y+dy)*g.w + (x + dx)
					sxx += gx[i] * gx[i]
					syy += gy[i] * gy[i]
					sxy += gx[i] * gy[i]
				}
			}
			det := sxx*syy - sxy*sxy
			trace := sxx + syy
			response[y*g.w+x] = det - harrisK*trace*trace
		}
	}

	var corners []corner
	for y := patchRadius; y < g.h-patchRadius; y++ {
		for x := patchRadius; x < g.w-patchRadius; x++ {
			r := response[y*g.w+x]
			if r < responseQuantum {
				continue
			}
			localMax := true
			for dy := -1; dy <= 1 && localMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					if response[(y+dy)*g.w+(x+dx)] > r {
						localMax = false
						break
					}
				}
			}
			if localMax {
				corners = append(corners, corner{x: x, y: y, response: r})
			}
		}
	}

	sort.Slice(corners, func(i, j int) bool {
		if corners[i].response != corners[j].response {
			return corners[i].response > corners[j].response
		}
		if corners[i].y != corners[j].y {
			return corners[i].y < corners[j].y
		}
		return corners[i].x < corners[j].x
	})
	return corners
}

func dominantOrientation(g *grayImage, cx, cy int) float32 {
	var sumX, sumY float64
	for dy := -patchRadius + 1; dy < patchRadius; dy++ {
		for dx := -patchRadius + 1; dx < patchRadius; dx++ {
			x, y := cx+dx, cy+dy
			gxv := float64(g.at(x+1, y)-g.at(x-1, y)) / 2
			gyv := float64(g.at(x, y+1)-g.at(x, y-1)) / 2
			magnitude := math.Hypot(gxv, gyv)
			sumX += gxv * magnitude
			sumY += gyv * magnitude
		}
	}
	return float32(math.Atan2(sumY, sumX))
}

// describePatch builds a 128-dim gradient-orientation histogram over the
// 16x16 patch around (cx, cy), rotated to the keypoint orientation and
// L2-normalized. Returns nil when the patch leaves the image.
func describePatch(g *grayImage, cx, cy int, orientation float32) []float32 {
	if cx < patchRadius+1 || cy < patchRadius+1 || cx >= g.w-patchRadius-1 || cy >= g.h-patchRadius-1 {
		return nil
	}

	desc := make([]float32, descriptorDim)
	for dy := -patchRadius; dy < patchRadius; dy++ {
		for dx := -patchRadius; dx < patchRadius; dx++ {
			x, y := cx+dx, cy+dy
			gxv := float64(g.at(x+1, y)-g.at(x-1, y)) / 2
			gyv := float64(g.at(x, y+1)-g.at(x, y-1)) / 2
			magnitude := math.Hypot(gxv, gyv)
			angle := math.Atan2(gyv, gxv) - float64(orientation)
			for angle < 0 {
				angle += 2 * math.Pi
			}
			for angle >= 2*math.Pi {
				angle -= 2 * math.Pi
			}

			cellX := (dx + patchRadius) / 4
			cellY := (dy + patchRadius) / 4
			bin := int(angle / (2 * math.Pi) * 8)
			if bin > 7 {
				bin = 7
			}
			desc[(cellY*4+cellX)*8+bin] += float32(magnitude)
		}
	}

	var norm float64
	for _, v := range desc {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm < 1e-12 {
		return nil
	}
	for i := range desc {
		desc[i] = float32(float64(desc[i]) / norm)
	}
	return desc
}
