package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddImage inserts an image row if absent and returns its ID. Existing rows
// keep their camera assignment: re-running extraction against a populated
// database must not silently rewrite calibrations.
func (s *Store) AddImage(ctx context.Context, name string, cameraModelID int, cameraParams string) (int64, error) {
	if id, ok, err := s.ImageID(ctx, name); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO images (name, camera_model_id, camera_params) VALUES (?, ?, ?)",
		name, cameraModelID, cameraParams)
	if err != nil {
		return 0, fmt.Errorf("insert image %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// SetImagePrior records a known position for an image.
func (s *Store) SetImagePrior(ctx context.Context, imageID int64, prior [3]float64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE images SET prior_x = ?, prior_y = ?, prior_z = ? WHERE image_id = ?",
		prior[0], prior[1], prior[2], imageID)
	if err != nil {
		return fmt.Errorf("set image prior: %w", err)
	}
	return nil
}

// ImageID resolves an image name to its ID.
func (s *Store) ImageID(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT image_id FROM images WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve image %q: %w", name, err)
	}
	return id, true, nil
}

// ImageName resolves an image ID to its name.
func (s *Store) ImageName(ctx context.Context, imageID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, "SELECT name FROM images WHERE image_id = ?", imageID).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("resolve image id %d: %w", imageID, err)
	}
	return name, nil
}

// ListImages returns all image rows ordered by ID. Insertion order doubles
// as the temporal order the sequential matcher relies on.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT image_id, name, camera_model_id, camera_params, prior_x, prior_y, prior_z FROM images ORDER BY image_id")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		var px, py, pz sql.NullFloat64
		if err := rows.Scan(&img.ID, &img.Name, &img.CameraModelID, &img.CameraParams, &px, &py, &pz); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		if px.Valid && py.Valid && pz.Valid {
			img.Prior = [3]float64{px.Float64, py.Float64, pz.Float64}
			img.HasPrior = true
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ImageIDsWithDescriptors returns the ordered IDs of images that have
// descriptors stored; matchers take this as their working set.
func (s *Store) ImageIDsWithDescriptors(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT image_id FROM descriptors ORDER BY image_id")
	if err != nil {
		return nil, fmt.Errorf("list featured images: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan image id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
