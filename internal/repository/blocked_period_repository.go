package repository

import (
	"context"
	"fmt"

	"github.com/projectdefense/scheduler/internal/model"
	"github.com/projectdefense/scheduler/internal/repository/base"
)

type BlockedPeriodRepository struct {
	db base.DBTX
}

func NewBlockedPeriodRepository(db base.DBTX) *BlockedPeriodRepository {
	return &BlockedPeriodRepository{db: db}
}

func (r *BlockedPeriodRepository) Create(ctx context.Context, period *model.BlockedPeriod) error {
	query := `
		INSERT INTO blocked_periods (id, instructor_id, room_id, from_utc, to_utc, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		period.ID,
		period.InstructorID,
		period.RoomID,
		period.FromUTC,
		period.ToUTC,
		period.Reason,
	).Scan(&period.CreatedAt)
	if err != nil {
		return fmt.Errorf("create blocked period: %w", err)
	}

	return nil
}

func (r *BlockedPeriodRepository) ListByInstructor(ctx context.Context, instructorID string) ([]*model.BlockedPeriod, error) {
	query := `
		SELECT id, instructor_id, room_id, from_utc, to_utc, reason, created_at
		FROM blocked_periods
		WHERE instructor_id = $1
		ORDER BY from_utc, id
	`

	rows, err := r.db.Query(ctx, query, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list blocked periods: %w", err)
	}
	defer rows.Close()

	var periods []*model.BlockedPeriod
	for rows.Next() {
		var p model.BlockedPeriod
		err := rows.Scan(
			&p.ID,
			&p.InstructorID,
			&p.RoomID,
			&p.FromUTC,
			&p.ToUTC,
			&p.Reason,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan blocked period: %w", err)
		}
		periods = append(periods, &p)
	}

	return periods, rows.Err()
}
