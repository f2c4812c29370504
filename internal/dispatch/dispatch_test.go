package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"parallax/internal/feature"
	"parallax/internal/gpu"
	"parallax/internal/logging"
	"parallax/internal/store"
	"parallax/internal/testsupport"
	"parallax/internal/visualindex"
)

type testEnv struct {
	dispatcher *Dispatcher
	dbPath     string
	contexts   *atomic.Int32
}

func newTestEnv(t *testing.T, gpuSupported bool) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMinNumInliers(3))

	contexts := &atomic.Int32{}
	runner := gpu.NewRunner(logging.NewNop(),
		gpu.WithSupported(gpuSupported),
		gpu.WithContextFactory(func() *gpu.Context {
			contexts.Add(1)
			return gpu.NewContext()
		}))

	return &testEnv{
		dispatcher: New(*cfg, logging.NewNop(), runner),
		dbPath:     cfg.Paths.DatabasePath,
		contexts:   contexts,
	}
}

// seedImage stores an image with n keypoints on a diagonal and distinct
// one-hot descriptors, so identical seeds match perfectly under an identity
// transform.
func seedImage(t *testing.T, s *store.Store, name string, n int) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := s.AddImage(ctx, name, 0, "")
	if err != nil {
		t.Fatalf("AddImage(%s): %v", name, err)
	}
	keypoints := make([]feature.Keypoint, n)
	descriptors := feature.Descriptors{Rows: n, Dim: n, Data: make([]float32, n*n)}
	for i := 0; i < n; i++ {
		keypoints[i] = feature.Keypoint{X: float32(10 * i), Y: float32(7 * i), Scale: 1}
		descriptors.Data[i*n+i] = 1
	}
	if err := s.WriteFeatures(ctx, id, keypoints, descriptors); err != nil {
		t.Fatalf("WriteFeatures(%s): %v", name, err)
	}
	return id
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// withStore opens the store for seeding and closes it again so the
// dispatcher can take the invocation lock afterwards.
func withStore(t *testing.T, path string, fn func(s *store.Store)) {
	t.Helper()
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()
	fn(s)
}

func writeLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteLines(t, path, lines...)
	return path
}

func TestExtractRejectsUnknownCameraModel(t *testing.T) {
	env := newTestEnv(t, true)
	err := env.dispatcher.Extract(context.Background(), ExtractOptions{
		DatabasePath: env.dbPath,
		ImagePath:    t.TempDir(),
		CameraModel:  "NOT_A_MODEL",
		UseGPU:       true,
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if _, statErr := os.Stat(env.dbPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("database created despite failed validation")
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created despite failed validation")
	}
}

func TestExtractRejectsBadCameraParams(t *testing.T) {
	cases := []struct {
		name   string
		model  string
		params string
	}{
		{"arity mismatch", "SIMPLE_PINHOLE", "100.0,50.0"},
		{"non-numeric", "PINHOLE", "a,b,c,d"},
		{"non-positive focal", "SIMPLE_PINHOLE", "0,50,50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			err := env.dispatcher.Extract(context.Background(), ExtractOptions{
				DatabasePath: env.dbPath,
				ImagePath:    t.TempDir(),
				CameraModel:  tc.model,
				CameraParams: tc.params,
			})
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestExtractEmptyParamsAlwaysValid(t *testing.T) {
	env := newTestEnv(t, false)
	err := env.dispatcher.Extract(context.Background(), ExtractOptions{
		DatabasePath: env.dbPath,
		ImagePath:    t.TempDir(), // no images
		CameraModel:  "SIMPLE_RADIAL",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
}

func TestExtractEmptyImageSetIsNoOp(t *testing.T) {
	env := newTestEnv(t, true)
	listPath := writeLines(t, t.TempDir(), "images.txt", "# no images here", "")
	err := env.dispatcher.Extract(context.Background(), ExtractOptions{
		DatabasePath:  env.dbPath,
		ImagePath:     t.TempDir(),
		ImageListPath: listPath,
		CameraModel:   "SIMPLE_RADIAL",
		UseGPU:        true,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, statErr := os.Stat(env.dbPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("database created for empty input set")
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created for empty input set")
	}
}

func TestImportFeaturesStoresDescriptors(t *testing.T) {
	env := newTestEnv(t, false)
	importDir := t.TempDir()
	testsupport.WriteDescriptorFile(t, filepath.Join(importDir, "a.png.txt"), 5, 4)
	testsupport.WriteDescriptorFile(t, filepath.Join(importDir, "b.png.txt"), 3, 4)
	listPath := writeLines(t, t.TempDir(), "images.txt", "a.png", "b.png")

	err := env.dispatcher.ImportFeatures(context.Background(), ImportFeaturesOptions{
		DatabasePath:  env.dbPath,
		ImageListPath: listPath,
		ImportPath:    importDir,
		CameraModel:   "SIMPLE_RADIAL",
	})
	if err != nil {
		t.Fatalf("ImportFeatures: %v", err)
	}

	s := openStore(t, env.dbPath)
	ctx := context.Background()
	for name, want := range map[string]int{"a.png": 5, "b.png": 3} {
		id, ok, err := s.ImageID(ctx, name)
		if err != nil || !ok {
			t.Fatalf("ImageID(%s): ok=%v err=%v", name, ok, err)
		}
		keypoints, err := s.ReadKeypoints(ctx, id)
		if err != nil {
			t.Fatalf("ReadKeypoints(%s): %v", name, err)
		}
		if len(keypoints) != want {
			t.Fatalf("%s: %d keypoints, want %d", name, len(keypoints), want)
		}
	}
}

func TestImportFeaturesSkipsMissingFiles(t *testing.T) {
	env := newTestEnv(t, false)
	importDir := t.TempDir()
	testsupport.WriteDescriptorFile(t, filepath.Join(importDir, "a.png.txt"), 4, 4)
	listPath := writeLines(t, t.TempDir(), "images.txt", "a.png", "missing.png")

	err := env.dispatcher.ImportFeatures(context.Background(), ImportFeaturesOptions{
		DatabasePath:  env.dbPath,
		ImageListPath: listPath,
		ImportPath:    importDir,
		CameraModel:   "SIMPLE_RADIAL",
	})
	if err != nil {
		t.Fatalf("ImportFeatures: %v", err)
	}

	s := openStore(t, env.dbPath)
	if _, ok, _ := s.ImageID(context.Background(), "missing.png"); ok {
		t.Fatal("image without descriptor file was registered")
	}
}

func TestMatchExhaustiveMatchesAllPairs(t *testing.T) {
	env := newTestEnv(t, false)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
		seedImage(t, s, "c.png", 8)
	})

	err := env.dispatcher.MatchExhaustive(context.Background(), ExhaustiveMatchOptions{
		DatabasePath: env.dbPath,
	})
	if err != nil {
		t.Fatalf("MatchExhaustive: %v", err)
	}

	s := openStore(t, env.dbPath)
	pairIDs, err := s.MatchedPairIDs(context.Background())
	if err != nil {
		t.Fatalf("MatchedPairIDs: %v", err)
	}
	if len(pairIDs) != 3 {
		t.Fatalf("matched %d pairs, want 3", len(pairIDs))
	}
}

func TestMatchExhaustiveEmptyStoreIsNoOp(t *testing.T) {
	env := newTestEnv(t, true)
	withStore(t, env.dbPath, func(s *store.Store) {})

	err := env.dispatcher.MatchExhaustive(context.Background(), ExhaustiveMatchOptions{
		DatabasePath: env.dbPath,
		UseGPU:       true,
	})
	if err != nil {
		t.Fatalf("MatchExhaustive: %v", err)
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created for empty pair set")
	}
}

func TestGPUContextCreatedOncePerInvocation(t *testing.T) {
	env := newTestEnv(t, true)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
	})

	err := env.dispatcher.MatchExhaustive(context.Background(), ExhaustiveMatchOptions{
		DatabasePath: env.dbPath,
		UseGPU:       true,
	})
	if err != nil {
		t.Fatalf("MatchExhaustive: %v", err)
	}
	if got := env.contexts.Load(); got != 1 {
		t.Fatalf("contexts created = %d, want 1", got)
	}
}

func TestGPURequestWithoutSupportRunsDirectly(t *testing.T) {
	env := newTestEnv(t, false)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
	})

	err := env.dispatcher.MatchExhaustive(context.Background(), ExhaustiveMatchOptions{
		DatabasePath: env.dbPath,
		UseGPU:       true,
	})
	if err != nil {
		t.Fatalf("MatchExhaustive: %v", err)
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created though support is unavailable")
	}
}

func TestMatchSequentialWindow(t *testing.T) {
	env := newTestEnv(t, false)
	withStore(t, env.dbPath, func(s *store.Store) {
		for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
			seedImage(t, s, name, 8)
		}
	})

	err := env.dispatcher.MatchSequential(context.Background(), SequentialMatchOptions{
		DatabasePath: env.dbPath,
		Overlap:      1,
	})
	if err != nil {
		t.Fatalf("MatchSequential: %v", err)
	}

	s := openStore(t, env.dbPath)
	pairIDs, err := s.MatchedPairIDs(context.Background())
	if err != nil {
		t.Fatalf("MatchedPairIDs: %v", err)
	}
	// Window of 1 over 4 images gives 3 consecutive pairs.
	if len(pairIDs) != 3 {
		t.Fatalf("matched %d pairs, want 3", len(pairIDs))
	}
}

func TestMatchSpatialPriorList(t *testing.T) {
	env := newTestEnv(t, false)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
		seedImage(t, s, "c.png", 8)
	})
	priorList := writeLines(t, t.TempDir(), "priors.txt",
		"a.png 0 0 0",
		"b.png 1 0 0",
		"c.png 10 0 0",
		"ghost.png 2 2 2", // unknown images are skipped
	)

	err := env.dispatcher.MatchSpatial(context.Background(), SpatialMatchOptions{
		DatabasePath:  env.dbPath,
		MaxNeighbors:  1,
		PriorListPath: priorList,
	})
	if err != nil {
		t.Fatalf("MatchSpatial: %v", err)
	}

	s := openStore(t, env.dbPath)
	pairIDs, err := s.MatchedPairIDs(context.Background())
	if err != nil {
		t.Fatalf("MatchedPairIDs: %v", err)
	}
	// Nearest neighbors at positions 0, 1, 10 pair a with b and b with c.
	if len(pairIDs) != 2 {
		t.Fatalf("matched %d pairs, want 2", len(pairIDs))
	}

	images, err := s.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	for _, img := range images {
		if !img.HasPrior {
			t.Errorf("image %s has no prior after prior-list run", img.Name)
		}
	}
}

func TestMatchSpatialMissingPriorListIsConfigurationError(t *testing.T) {
	env := newTestEnv(t, true)

	err := env.dispatcher.MatchSpatial(context.Background(), SpatialMatchOptions{
		DatabasePath:  env.dbPath,
		PriorListPath: filepath.Join(t.TempDir(), "missing.txt"),
		UseGPU:        true,
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if _, statErr := os.Stat(env.dbPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("database created despite unreadable prior list")
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created despite unreadable prior list")
	}
}

func TestMatchSpatialWithoutPriorsIsNoOp(t *testing.T) {
	env := newTestEnv(t, true)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
	})

	err := env.dispatcher.MatchSpatial(context.Background(), SpatialMatchOptions{
		DatabasePath: env.dbPath,
		UseGPU:       true,
	})
	if err != nil {
		t.Fatalf("MatchSpatial: %v", err)
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created for empty spatial plan")
	}
}

func TestMatchVocabTreeRejectsDimMismatch(t *testing.T) {
	env := newTestEnv(t, true)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 4)
		seedImage(t, s, "b.png", 4)
	})

	vocabPath := filepath.Join(t.TempDir(), "vocab.bin")
	vocab := &visualindex.Vocabulary{
		Dim:   8,
		Words: [][]float32{make([]float32, 8), make([]float32, 8)},
	}
	vocab.Words[1][0] = 1
	if err := visualindex.WriteVocabulary(vocabPath, vocab); err != nil {
		t.Fatalf("WriteVocabulary: %v", err)
	}

	err := env.dispatcher.MatchVocabTree(context.Background(), VocabTreeMatchOptions{
		DatabasePath: env.dbPath,
		VocabPath:    vocabPath,
		NumImages:    5,
		UseGPU:       true,
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created despite vocabulary dim mismatch")
	}
}

func TestMatchErrorsNameImages(t *testing.T) {
	env := newTestEnv(t, false)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "left.png", 4)
		seedImage(t, s, "right.png", 5) // different descriptor dim
	})

	err := env.dispatcher.MatchExhaustive(context.Background(), ExhaustiveMatchOptions{
		DatabasePath: env.dbPath,
	})
	if err == nil {
		t.Fatal("expected error for mismatched descriptor dims")
	}
	if !strings.Contains(err.Error(), "left.png") || !strings.Contains(err.Error(), "right.png") {
		t.Fatalf("error %q does not name the offending images", err)
	}
}

func TestImportMatchesRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t, true)
	err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
		DatabasePath:  env.dbPath,
		MatchListPath: "", // never reached: type check comes first
		MatchType:     "geometric",
		UseGPU:        true,
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if env.contexts.Load() != 0 {
		t.Fatal("context created despite invalid match type")
	}
}

func seedPairForImport(t *testing.T, env *testEnv) {
	t.Helper()
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
	})
}

// importList includes four geometrically consistent matches and two
// outliers, so verification results are distinguishable from a verbatim
// import.
func importList(t *testing.T) string {
	return writeLines(t, t.TempDir(), "matches.txt",
		"a.png b.png",
		"0 0",
		"1 1",
		"2 2",
		"3 3",
		"0 5",
		"5 0",
	)
}

func TestImportMatchesRawVerifies(t *testing.T) {
	env := newTestEnv(t, false)
	seedPairForImport(t, env)

	err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
		DatabasePath:  env.dbPath,
		MatchListPath: importList(t),
		MatchType:     MatchTypeRaw,
	})
	if err != nil {
		t.Fatalf("ImportMatches: %v", err)
	}

	s := openStore(t, env.dbPath)
	ctx := context.Background()
	id1, _, _ := s.ImageID(ctx, "a.png")
	id2, _, _ := s.ImageID(ctx, "b.png")
	pairID := store.PairID(id1, id2)

	matches, err := s.ReadMatches(ctx, pairID)
	if err != nil || len(matches) != 6 {
		t.Fatalf("ReadMatches: %d matches, err=%v, want 6", len(matches), err)
	}
	inliers, geomConfig, err := s.ReadTwoViewGeometry(ctx, pairID)
	if err != nil {
		t.Fatalf("ReadTwoViewGeometry: %v", err)
	}
	// Identical keypoint layouts fit an identity transform, so verification
	// keeps the four consistent matches and rejects the two outliers.
	if geomConfig != store.ConfigCalibrated || len(inliers) != 4 {
		t.Fatalf("geometry config=%d inliers=%d, want calibrated with 4", geomConfig, len(inliers))
	}
}

func TestImportMatchesInliersSkipsVerification(t *testing.T) {
	env := newTestEnv(t, false)
	seedPairForImport(t, env)

	err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
		DatabasePath:  env.dbPath,
		MatchListPath: importList(t),
		MatchType:     MatchTypeInliers,
	})
	if err != nil {
		t.Fatalf("ImportMatches: %v", err)
	}

	s := openStore(t, env.dbPath)
	ctx := context.Background()
	id1, _, _ := s.ImageID(ctx, "a.png")
	id2, _, _ := s.ImageID(ctx, "b.png")

	inliers, geomConfig, err := s.ReadTwoViewGeometry(ctx, store.PairID(id1, id2))
	if err != nil {
		t.Fatalf("ReadTwoViewGeometry: %v", err)
	}
	if geomConfig != store.ConfigCalibrated || len(inliers) != 6 {
		t.Fatalf("geometry config=%d inliers=%d, want imported 6 verbatim", geomConfig, len(inliers))
	}
}

func TestImportMatchesPairsRunsMatcher(t *testing.T) {
	env := newTestEnv(t, false)
	withStore(t, env.dbPath, func(s *store.Store) {
		seedImage(t, s, "a.png", 8)
		seedImage(t, s, "b.png", 8)
		seedImage(t, s, "c.png", 8)
	})
	listPath := writeLines(t, t.TempDir(), "pairs.txt", "a.png c.png")

	err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
		DatabasePath:  env.dbPath,
		MatchListPath: listPath,
		MatchType:     MatchTypePairs,
	})
	if err != nil {
		t.Fatalf("ImportMatches: %v", err)
	}

	s := openStore(t, env.dbPath)
	pairIDs, err := s.MatchedPairIDs(context.Background())
	if err != nil {
		t.Fatalf("MatchedPairIDs: %v", err)
	}
	if len(pairIDs) != 1 {
		t.Fatalf("matched %d pairs, want only the listed pair", len(pairIDs))
	}
}

// The raw and inliers importers share the same list reader; re-importing
// the same file with the other type succeeds and differs only in whether
// verification rewrites the stored geometry.
func TestImportMatchesRawThenInliers(t *testing.T) {
	env := newTestEnv(t, false)
	seedPairForImport(t, env)
	listPath := importList(t)

	for _, matchType := range []string{MatchTypeRaw, MatchTypeInliers} {
		err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
			DatabasePath:  env.dbPath,
			MatchListPath: listPath,
			MatchType:     matchType,
		})
		if err != nil {
			t.Fatalf("ImportMatches(%s): %v", matchType, err)
		}
	}

	s := openStore(t, env.dbPath)
	ctx := context.Background()
	id1, _, _ := s.ImageID(ctx, "a.png")
	id2, _, _ := s.ImageID(ctx, "b.png")

	// The later verbatim import overwrote the verified geometry.
	inliers, _, err := s.ReadTwoViewGeometry(ctx, store.PairID(id1, id2))
	if err != nil {
		t.Fatalf("ReadTwoViewGeometry: %v", err)
	}
	if len(inliers) != 6 {
		t.Fatalf("geometry inliers=%d, want 6 after verbatim re-import", len(inliers))
	}
}

func TestImportMatchesRejectsOutOfRangeIndices(t *testing.T) {
	env := newTestEnv(t, false)
	seedPairForImport(t, env)
	listPath := writeLines(t, t.TempDir(), "matches.txt",
		"a.png b.png",
		"0 0",
		"9 1", // beyond the 8 stored keypoints
	)

	err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
		DatabasePath:  env.dbPath,
		MatchListPath: listPath,
		MatchType:     MatchTypeInliers,
	})
	if err == nil {
		t.Fatal("expected error for out-of-range feature index")
	}

	s := openStore(t, env.dbPath)
	matches, err := s.ReadMatches(context.Background(), store.PairID(1, 2))
	if err != nil {
		t.Fatalf("ReadMatches: %v", err)
	}
	if matches != nil {
		t.Fatalf("stored %d matches despite out-of-range index", len(matches))
	}
}

func TestImportMatchesEmptyListIsNoOp(t *testing.T) {
	env := newTestEnv(t, true)
	listPath := writeLines(t, t.TempDir(), "matches.txt", "# nothing")

	err := env.dispatcher.ImportMatches(context.Background(), ImportMatchesOptions{
		DatabasePath:  env.dbPath,
		MatchListPath: listPath,
		MatchType:     MatchTypeRaw,
		UseGPU:        true,
	})
	if err != nil {
		t.Fatalf("ImportMatches: %v", err)
	}
	if _, statErr := os.Stat(env.dbPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("database created for empty match list")
	}
}
