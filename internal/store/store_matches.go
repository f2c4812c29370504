package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Two-view geometry configurations. Only the degenerate/calibrated split
// matters at this layer; reconstruction interprets the rest.
const (
	ConfigUndefined    = 0
	ConfigDegenerate   = 1
	ConfigCalibrated   = 2
	ConfigUncalibrated = 3
)

// WriteMatches stores raw candidate matches for a pair, replacing previous
// rows. Matches must already be oriented for the canonical pair order.
func (s *Store) WriteMatches(ctx context.Context, pairID int64, matches [][2]uint32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO matches (pair_id, rows, data) VALUES (?, ?, ?)",
		pairID, len(matches), encodeMatches(matches))
	if err != nil {
		return fmt.Errorf("write matches for pair %d: %w", pairID, err)
	}
	return nil
}

// ReadMatches loads the raw matches for a pair. Missing rows yield nil.
func (s *Store) ReadMatches(ctx context.Context, pairID int64) ([][2]uint32, error) {
	var rows int
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT rows, data FROM matches WHERE pair_id = ?", pairID).Scan(&rows, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read matches for pair %d: %w", pairID, err)
	}
	return decodeMatches(data, rows)
}

// WriteTwoViewGeometry stores the verified inlier matches for a pair.
func (s *Store) WriteTwoViewGeometry(ctx context.Context, pairID int64, inliers [][2]uint32, config int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO two_view_geometries (pair_id, rows, data, config) VALUES (?, ?, ?, ?)",
		pairID, len(inliers), encodeMatches(inliers), config)
	if err != nil {
		return fmt.Errorf("write two-view geometry for pair %d: %w", pairID, err)
	}
	return nil
}

// ReadTwoViewGeometry loads the verified matches for a pair. Missing rows
// yield nil matches and ConfigUndefined.
func (s *Store) ReadTwoViewGeometry(ctx context.Context, pairID int64) ([][2]uint32, int, error) {
	var rows, config int
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT rows, data, config FROM two_view_geometries WHERE pair_id = ?", pairID).Scan(&rows, &data, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ConfigUndefined, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read two-view geometry for pair %d: %w", pairID, err)
	}
	matches, err := decodeMatches(data, rows)
	return matches, config, err
}

// MatchedPairIDs returns the pair keys that have stored matches, ordered by
// key. The transitive matcher expands this graph.
func (s *Store) MatchedPairIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT pair_id FROM matches WHERE rows > 0 ORDER BY pair_id")
	if err != nil {
		return nil, fmt.Errorf("list matched pairs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pair id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats aggregates row counts for presentation.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		sql  string
		dest any
	}{
		{"SELECT COUNT(1) FROM images", &st.NumImages},
		{"SELECT COUNT(1) FROM descriptors", &st.NumFeatured},
		{"SELECT COALESCE(SUM(rows), 0) FROM keypoints", &st.NumKeypoints},
		{"SELECT COUNT(1) FROM matches", &st.NumMatchedPairs},
		{"SELECT COUNT(1) FROM two_view_geometries", &st.NumVerifiedPairs},
		{"SELECT COALESCE(SUM(rows), 0) FROM matches", &st.NumMatches},
		{"SELECT COALESCE(SUM(rows), 0) FROM two_view_geometries", &st.NumInlierMatches},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("stats query %q: %w", q.sql, err)
		}
	}
	return st, nil
}
