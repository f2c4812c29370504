package camera_test

import (
	"testing"

	"parallax/internal/camera"
)

func TestExistsModel(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"SIMPLE_PINHOLE", true},
		{"simple_radial", true},
		{"  OPENCV  ", true},
		{"THIN_PRISM_FISHEYE", true},
		{"PANORAMIC", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := camera.ExistsModel(tc.name); got != tc.want {
			t.Errorf("ExistsModel(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestModelNameToID(t *testing.T) {
	id, ok := camera.ModelNameToID("PINHOLE")
	if !ok {
		t.Fatal("expected PINHOLE to resolve")
	}
	if id != 1 {
		t.Fatalf("PINHOLE id = %d, want 1", id)
	}
	if _, ok := camera.ModelNameToID("NO_SUCH_MODEL"); ok {
		t.Fatal("expected unknown model to fail resolution")
	}
}

func TestParseParamsCSV(t *testing.T) {
	values, err := camera.ParseParamsCSV("1600, 1600, 960, 540")
	if err != nil {
		t.Fatalf("ParseParamsCSV returned error: %v", err)
	}
	if len(values) != 4 || values[0] != 1600 || values[3] != 540 {
		t.Fatalf("unexpected values: %v", values)
	}

	values, err = camera.ParseParamsCSV("   ")
	if err != nil {
		t.Fatalf("empty input should parse: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("empty input should yield no values, got %v", values)
	}

	if _, err := camera.ParseParamsCSV("1600, abc"); err == nil {
		t.Fatal("expected parse error for non-numeric field")
	}
}

func TestVerifyParamsArity(t *testing.T) {
	pinholeID, _ := camera.ModelNameToID("PINHOLE")

	if !camera.VerifyParams(pinholeID, nil) {
		t.Fatal("empty parameter vector must always validate")
	}
	if !camera.VerifyParams(pinholeID, []float64{1600, 1600, 960, 540}) {
		t.Fatal("expected well-formed PINHOLE params to validate")
	}
	if camera.VerifyParams(pinholeID, []float64{1600, 960, 540}) {
		t.Fatal("expected wrong arity to fail validation")
	}
	if camera.VerifyParams(pinholeID, []float64{1600, 1600, 960, 540, 0.1}) {
		t.Fatal("expected excess arity to fail validation")
	}
}

func TestVerifyParamsFocalRange(t *testing.T) {
	radialID, _ := camera.ModelNameToID("SIMPLE_RADIAL")
	if camera.VerifyParams(radialID, []float64{0, 960, 540, 0.01}) {
		t.Fatal("zero focal length must fail validation")
	}
	if camera.VerifyParams(radialID, []float64{-12, 960, 540, 0.01}) {
		t.Fatal("negative focal length must fail validation")
	}
	if !camera.VerifyParams(radialID, []float64{1200, 960, 540, -0.01}) {
		t.Fatal("negative distortion term is allowed")
	}
}

func TestRegistryArities(t *testing.T) {
	want := map[string]int{
		"SIMPLE_PINHOLE":        3,
		"PINHOLE":               4,
		"SIMPLE_RADIAL":         4,
		"RADIAL":                5,
		"OPENCV":                8,
		"OPENCV_FISHEYE":        8,
		"FULL_OPENCV":           12,
		"FOV":                   5,
		"SIMPLE_RADIAL_FISHEYE": 4,
		"RADIAL_FISHEYE":        5,
		"THIN_PRISM_FISHEYE":    12,
	}
	all := camera.AllModels()
	if len(all) != len(want) {
		t.Fatalf("registry size = %d, want %d", len(all), len(want))
	}
	for _, m := range all {
		if want[m.Name] != m.NumParams {
			t.Errorf("%s arity = %d, want %d", m.Name, m.NumParams, want[m.Name])
		}
	}
}
