// Package repository implements the engine's storage collaborator on
// PostgreSQL via pgx. Each entity gets its own repository; Store bundles them
// and runs compound mutations inside a single transaction.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projectdefense/scheduler/internal/repository/base"
	"github.com/projectdefense/scheduler/internal/service"
)

type Store struct {
	pool *pgxpool.Pool // nil when the store view is transaction-bound

	rooms          *RoomRepository
	availabilities *AvailabilityRepository
	slots          *SlotRepository
	blockedPeriods *BlockedPeriodRepository
	bans           *BanRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return newStore(pool, pool)
}

func newStore(pool *pgxpool.Pool, db base.DBTX) *Store {
	return &Store{
		pool:           pool,
		rooms:          NewRoomRepository(db),
		availabilities: NewAvailabilityRepository(db),
		slots:          NewSlotRepository(db),
		blockedPeriods: NewBlockedPeriodRepository(db),
		bans:           NewBanRepository(db),
	}
}

func (s *Store) Rooms() service.RoomStore                   { return s.rooms }
func (s *Store) Availabilities() service.AvailabilityStore  { return s.availabilities }
func (s *Store) Slots() service.SlotStore                   { return s.slots }
func (s *Store) BlockedPeriods() service.BlockedPeriodStore { return s.blockedPeriods }
func (s *Store) Bans() service.BanStore                     { return s.bans }

// InTx runs fn against a store view bound to one transaction; fn failing
// rolls everything back. Calling InTx on an already transaction-bound view
// joins the running transaction.
func (s *Store) InTx(ctx context.Context, fn func(service.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newStore(nil, tx))
	})
	if err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	return nil
}
