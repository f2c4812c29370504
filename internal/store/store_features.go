package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parallax/internal/feature"
)

// WriteFeatures stores the keypoints and descriptors for one image,
// replacing any previous rows.
func (s *Store) WriteFeatures(ctx context.Context, imageID int64, keypoints []feature.Keypoint, descriptors feature.Descriptors) error {
	if len(keypoints) != descriptors.Rows {
		return fmt.Errorf("keypoint count %d does not match descriptor rows %d", len(keypoints), descriptors.Rows)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin feature tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO keypoints (image_id, rows, data) VALUES (?, ?, ?)",
		imageID, len(keypoints), encodeKeypoints(keypoints)); err != nil {
		return fmt.Errorf("write keypoints: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO descriptors (image_id, rows, dim, data) VALUES (?, ?, ?, ?)",
		imageID, descriptors.Rows, descriptors.Dim, encodeDescriptors(descriptors)); err != nil {
		return fmt.Errorf("write descriptors: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit features: %w", err)
	}
	return nil
}

// ReadKeypoints loads the keypoints for one image. Missing rows yield an
// empty slice.
func (s *Store) ReadKeypoints(ctx context.Context, imageID int64) ([]feature.Keypoint, error) {
	var rows int
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT rows, data FROM keypoints WHERE image_id = ?", imageID).Scan(&rows, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read keypoints for image %d: %w", imageID, err)
	}
	return decodeKeypoints(data, rows)
}

// ReadDescriptors loads the descriptor matrix for one image.
func (s *Store) ReadDescriptors(ctx context.Context, imageID int64) (feature.Descriptors, error) {
	var rows, dim int
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT rows, dim, data FROM descriptors WHERE image_id = ?", imageID).Scan(&rows, &dim, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return feature.Descriptors{}, nil
	}
	if err != nil {
		return feature.Descriptors{}, fmt.Errorf("read descriptors for image %d: %w", imageID, err)
	}
	return decodeDescriptors(data, rows, dim)
}

// HasFeatures reports whether descriptors exist for an image.
func (s *Store) HasFeatures(ctx context.Context, imageID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM descriptors WHERE image_id = ?", imageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check features for image %d: %w", imageID, err)
	}
	return true, nil
}
