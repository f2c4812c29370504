package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteImageList writes an image-list file with one name per line.
func WriteImageList(t testing.TB, path string, names ...string) {
	t.Helper()
	writeFile(t, path, strings.Join(names, "\n")+"\n")
}

// WriteLines writes the given lines joined with newlines, for pair and
// match list fixtures.
func WriteLines(t testing.TB, path string, lines ...string) {
	t.Helper()
	writeFile(t, path, strings.Join(lines, "\n")+"\n")
}

// WritePNG draws a checkerboard test image with enough structure for the
// corner detector to find features.
func WritePNG(t testing.TB, path string, width, height int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	const cell = 8
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 230})
			} else {
				img.SetGray(x, y, color.Gray{Y: 25})
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteDescriptorFile writes a feature file with n keypoints and identity
// style descriptors of the given dimensionality.
func WriteDescriptorFile(t testing.TB, path string, n, dim int) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d\n", n, dim)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d %d 1.0 0.0", 10*i, 7*i)
		for k := 0; k < dim; k++ {
			if k == i%dim {
				b.WriteString(" 1")
			} else {
				b.WriteString(" 0")
			}
		}
		b.WriteByte('\n')
	}
	writeFile(t, path, b.String())
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
