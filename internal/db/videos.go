package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/models"
)

func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (id, account_id, project_name, background_type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		video.ID, video.AccountID, video.ProjectName, video.BackgroundType, video.Status,
	).Scan(&video.CreatedAt, &video.UpdatedAt)
}

func (db *DB) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	query := `
		SELECT id, account_id, project_name, background_type, status,
		       deliverable_id, duration_seconds, error_code, error_message,
		       created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	video := &models.Video{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.AccountID, &video.ProjectName, &video.BackgroundType,
		&video.Status, &video.DeliverableID, &video.DurationSeconds,
		&video.ErrorCode, &video.ErrorMessage,
		&video.CreatedAt, &video.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// ListAccountVideos returns an account's videos, newest first.
func (db *DB) ListAccountVideos(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.Video, error) {
	query := `
		SELECT id, account_id, project_name, background_type, status,
		       deliverable_id, duration_seconds, error_code, error_message,
		       created_at, updated_at
		FROM videos
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(
			&v.ID, &v.AccountID, &v.ProjectName, &v.BackgroundType,
			&v.Status, &v.DeliverableID, &v.DurationSeconds,
			&v.ErrorCode, &v.ErrorMessage,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}

	return videos, rows.Err()
}

func (db *DB) CountAccountVideos(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE account_id = $1`, accountID).Scan(&count)
	return count, err
}

func (db *DB) UpdateVideoStatus(ctx context.Context, id uuid.UUID, status models.VideoStatus) error {
	query := `UPDATE videos SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateVideoError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE videos
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.VideoStatusFailed, errorCode, errorMessage, id)
	return err
}

// SetVideoDeliverable marks a video completed and records the deliverable
// reference plus the measured duration.
func (db *DB) SetVideoDeliverable(ctx context.Context, id, deliverableID uuid.UUID, durationSeconds float64) error {
	query := `
		UPDATE videos
		SET deliverable_id = $1, duration_seconds = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, deliverableID, durationSeconds, models.VideoStatusCompleted, id)
	return err
}
