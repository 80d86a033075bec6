package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/repository/base"
)

type BanRepository struct {
	db base.DBTX
}

func NewBanRepository(db base.DBTX) *BanRepository {
	return &BanRepository{db: db}
}

func (r *BanRepository) GetByStudent(ctx context.Context, studentID string) (*model.StudentBan, error) {
	query := `
		SELECT id, student_id, reason, until_utc, created_at, updated_at
		FROM student_bans
		WHERE student_id = $1
	`

	var ban model.StudentBan
	err := r.db.QueryRow(ctx, query, studentID).Scan(
		&ban.ID,
		&ban.StudentID,
		&ban.Reason,
		&ban.UntilUTC,
		&ban.CreatedAt,
		&ban.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ban by student: %w", err)
	}

	return &ban, nil
}

// Upsert inserts the ban or updates reason and until for an already-banned
// student. student_id is unique, so no duplicates can appear. The record's
// id and timestamps are written back.
func (r *BanRepository) Upsert(ctx context.Context, ban *model.StudentBan) error {
	query := `
		INSERT INTO student_bans (id, student_id, reason, until_utc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE
		SET reason = EXCLUDED.reason, until_utc = EXCLUDED.until_utc, updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, ban.ID, ban.StudentID, ban.Reason, ban.UntilUTC).
		Scan(&ban.ID, &ban.CreatedAt, &ban.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert ban: %w", err)
	}

	return nil
}

func (r *BanRepository) List(ctx context.Context) ([]*model.StudentBan, error) {
	query := `
		SELECT id, student_id, reason, until_utc, created_at, updated_at
		FROM student_bans
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var bans []*model.StudentBan
	for rows.Next() {
		var ban model.StudentBan
		err := rows.Scan(
			&ban.ID,
			&ban.StudentID,
			&ban.Reason,
			&ban.UntilUTC,
			&ban.CreatedAt,
			&ban.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		bans = append(bans, &ban)
	}

	return bans, rows.Err()
}

func (r *BanRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM student_bans
		WHERE until_utc IS NOT NULL AND until_utc <= $1
	`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired bans: %w", err)
	}

	return tag.RowsAffected(), nil
}
