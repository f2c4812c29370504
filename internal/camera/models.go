package camera

import (
	"strconv"
	"strings"
)

// Model describes one entry in the camera model registry.
type Model struct {
	ID        int
	Name      string
	ParamInfo string
	NumParams int
	// focalIdxs are the parameter positions that must be strictly positive.
	focalIdxs []int
}

var models = []Model{
	{ID: 0, Name: "SIMPLE_PINHOLE", ParamInfo: "f, cx, cy", NumParams: 3, focalIdxs: []int{0}},
	{ID: 1, Name: "PINHOLE", ParamInfo: "fx, fy, cx, cy", NumParams: 4, focalIdxs: []int{0, 1}},
	{ID: 2, Name: "SIMPLE_RADIAL", ParamInfo: "f, cx, cy, k", NumParams: 4, focalIdxs: []int{0}},
	{ID: 3, Name: "RADIAL", ParamInfo: "f, cx, cy, k1, k2", NumParams: 5, focalIdxs: []int{0}},
	{ID: 4, Name: "OPENCV", ParamInfo: "fx, fy, cx, cy, k1, k2, p1, p2", NumParams: 8, focalIdxs: []int{0, 1}},
	{ID: 5, Name: "OPENCV_FISHEYE", ParamInfo: "fx, fy, cx, cy, k1, k2, k3, k4", NumParams: 8, focalIdxs: []int{0, 1}},
	{ID: 6, Name: "FULL_OPENCV", ParamInfo: "fx, fy, cx, cy, k1, k2, p1, p2, k3, k4, k5, k6", NumParams: 12, focalIdxs: []int{0, 1}},
	{ID: 7, Name: "FOV", ParamInfo: "fx, fy, cx, cy, omega", NumParams: 5, focalIdxs: []int{0, 1}},
	{ID: 8, Name: "SIMPLE_RADIAL_FISHEYE", ParamInfo: "f, cx, cy, k", NumParams: 4, focalIdxs: []int{0}},
	{ID: 9, Name: "RADIAL_FISHEYE", ParamInfo: "f, cx, cy, k1, k2", NumParams: 5, focalIdxs: []int{0}},
	{ID: 10, Name: "THIN_PRISM_FISHEYE", ParamInfo: "fx, fy, cx, cy, k1, k2, p1, p2, k3, k4, sx1, sy1", NumParams: 12, focalIdxs: []int{0, 1}},
}

var modelsByName = func() map[string]Model {
	byName := make(map[string]Model, len(models))
	for _, m := range models {
		byName[m.Name] = m
	}
	return byName
}()

var modelsByID = func() map[int]Model {
	byID := make(map[int]Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	return byID
}()

// AllModels returns the registry entries ordered by ID.
func AllModels() []Model {
	cp := make([]Model, len(models))
	copy(cp, models)
	return cp
}

// ExistsModel reports whether a camera model with the given name is registered.
// Names are matched case-insensitively against the canonical upper-case form.
func ExistsModel(name string) bool {
	_, ok := modelsByName[canonicalName(name)]
	return ok
}

// ModelNameToID maps a model name to its registry ID.
func ModelNameToID(name string) (int, bool) {
	m, ok := modelsByName[canonicalName(name)]
	if !ok {
		return 0, false
	}
	return m.ID, true
}

// ModelByID returns the registry entry for a numeric model ID.
func ModelByID(id int) (Model, bool) {
	m, ok := modelsByID[id]
	return m, ok
}

// ParseParamsCSV parses a comma-separated list of numeric camera parameters.
// An empty or all-whitespace input yields an empty slice and no error.
func ParseParamsCSV(params string) ([]float64, error) {
	trimmed := strings.TrimSpace(params)
	if trimmed == "" {
		return nil, nil
	}
	fields := strings.Split(trimmed, ",")
	values := make([]float64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// VerifyParams checks a parsed parameter vector against the model's arity and
// range constraints. An empty vector is always valid: estimation is deferred.
func VerifyParams(modelID int, params []float64) bool {
	if len(params) == 0 {
		return true
	}
	m, ok := modelsByID[modelID]
	if !ok {
		return false
	}
	if len(params) != m.NumParams {
		return false
	}
	for _, idx := range m.focalIdxs {
		if params[idx] <= 0 {
			return false
		}
	}
	return true
}

func canonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
