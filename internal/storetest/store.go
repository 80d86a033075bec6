// Package storetest provides an in-memory service.Store for tests. It mirrors
// the semantics of the pgx repositories (conditional claim and release guards,
// the availability-to-slots delete cascade, ban uniqueness per student) without
// a database. Tests drive it from one goroutine; InTx applies the function
// directly and does not emulate rollback.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/projectdefense/scheduler/internal/model"
	scherrors "github.com/projectdefense/scheduler/internal/scheduling/errors"
	"github.com/projectdefense/scheduler/internal/service"
)

type Store struct {
	mu             sync.Mutex
	rooms          map[uuid.UUID]*model.Room
	availabilities map[uuid.UUID]*model.Availability
	slots          map[uuid.UUID]*model.Slot
	blockedPeriods map[uuid.UUID]*model.BlockedPeriod
	bans           map[string]*model.StudentBan

	// BeforeClaim, when set, runs against the stored slot just before Claim
	// checks it. Tests use it to mutate the slot and simulate a concurrent
	// writer winning the race.
	BeforeClaim func(slot *model.Slot)
}

func New() *Store {
	return &Store{
		rooms:          make(map[uuid.UUID]*model.Room),
		availabilities: make(map[uuid.UUID]*model.Availability),
		slots:          make(map[uuid.UUID]*model.Slot),
		blockedPeriods: make(map[uuid.UUID]*model.BlockedPeriod),
		bans:           make(map[string]*model.StudentBan),
	}
}

func (s *Store) Rooms() service.RoomStore                   { return roomStore{s} }
func (s *Store) Availabilities() service.AvailabilityStore  { return availabilityStore{s} }
func (s *Store) Slots() service.SlotStore                   { return slotStore{s} }
func (s *Store) BlockedPeriods() service.BlockedPeriodStore { return blockedPeriodStore{s} }
func (s *Store) Bans() service.BanStore                     { return banStore{s} }

func (s *Store) InTx(_ context.Context, fn func(service.Store) error) error {
	return fn(s)
}

func idLess(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartUTC.Equal(slots[j].StartUTC) {
			return slots[i].StartUTC.Before(slots[j].StartUTC)
		}
		return idLess(slots[i].ID, slots[j].ID)
	})
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
}

func cloneRoom(r *model.Room) *model.Room {
	cp := *r
	return &cp
}

// joinSlot copies the slot with its availability and room attached, the way
// the SQL listings return it.
func (s *Store) joinSlot(slot *model.Slot) *model.Slot {
	cp := *slot
	if a, ok := s.availabilities[slot.AvailabilityID]; ok {
		ac := *a
		if room, ok := s.rooms[a.RoomID]; ok {
			ac.Room = cloneRoom(room)
		}
		cp.Availability = &ac
	}
	return &cp
}

type roomStore struct{ s *Store }

func (st roomStore) Create(_ context.Context, room *model.Room) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	st.s.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (st roomStore) GetByID(_ context.Context, id uuid.UUID) (*model.Room, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	room, ok := st.s.rooms[id]
	if !ok {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (st roomStore) List(_ context.Context) ([]*model.Room, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	rooms := make([]*model.Room, 0, len(st.s.rooms))
	for _, room := range st.s.rooms {
		rooms = append(rooms, cloneRoom(room))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name != rooms[j].Name {
			return rooms[i].Name < rooms[j].Name
		}
		return idLess(rooms[i].ID, rooms[j].ID)
	})
	return rooms, nil
}

func (st roomStore) Update(_ context.Context, room *model.Room) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	existing, ok := st.s.rooms[room.ID]
	if !ok {
		return fmt.Errorf("room %s: %w", room.ID, scherrors.ErrNotFound)
	}
	existing.Name = room.Name
	existing.Number = room.Number
	return nil
}

func (st roomStore) Delete(_ context.Context, id uuid.UUID) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.rooms[id]; !ok {
		return fmt.Errorf("room %s: %w", id, scherrors.ErrNotFound)
	}
	delete(st.s.rooms, id)
	return nil
}

func (st roomStore) ReferencedByAvailability(_ context.Context, id uuid.UUID) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, a := range st.s.availabilities {
		if a.RoomID == id {
			return true, nil
		}
	}
	return false, nil
}

type availabilityStore struct{ s *Store }

func (st availabilityStore) Create(_ context.Context, availability *model.Availability) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if availability.CreatedAt.IsZero() {
		availability.CreatedAt = time.Now().UTC()
	}
	cp := *availability
	cp.Room = nil
	st.s.availabilities[availability.ID] = &cp
	return nil
}

func (st availabilityStore) GetByID(_ context.Context, id uuid.UUID) (*model.Availability, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	a, ok := st.s.availabilities[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (st availabilityStore) ListByInstructor(_ context.Context, instructorID string) ([]*model.Availability, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*model.Availability
	for _, a := range st.s.availabilities {
		if a.InstructorID != instructorID {
			continue
		}
		cp := *a
		if room, ok := st.s.rooms[a.RoomID]; ok {
			cp.Room = cloneRoom(room)
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FromDate.Equal(out[j].FromDate) {
			return out[i].FromDate.After(out[j].FromDate)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (st availabilityStore) ListByInstructorRoom(_ context.Context, instructorID string, roomID uuid.UUID) ([]*model.Availability, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*model.Availability
	for _, a := range st.s.availabilities {
		if a.InstructorID != instructorID || a.RoomID != roomID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FromDate.Equal(out[j].FromDate) {
			return out[i].FromDate.Before(out[j].FromDate)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (st availabilityStore) Delete(_ context.Context, id uuid.UUID) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if _, ok := st.s.availabilities[id]; !ok {
		return fmt.Errorf("availability %s: %w", id, scherrors.ErrNotFound)
	}
	delete(st.s.availabilities, id)
	for slotID, slot := range st.s.slots {
		if slot.AvailabilityID == id {
			delete(st.s.slots, slotID)
		}
	}
	return nil
}

type slotStore struct{ s *Store }

func (st slotStore) CreateBatch(_ context.Context, slots []*model.Slot) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, slot := range slots {
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = time.Now().UTC()
		}
		cp := *slot
		cp.Availability = nil
		st.s.slots[slot.ID] = &cp
	}
	return nil
}

func (st slotStore) GetByID(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	slot, ok := st.s.slots[id]
	if !ok {
		return nil, nil
	}
	return st.s.joinSlot(slot), nil
}

func (st slotStore) ListOpen(_ context.Context, now time.Time) ([]*model.Slot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*model.Slot
	for _, slot := range st.s.slots {
		if slot.IsBookable(now) {
			out = append(out, st.s.joinSlot(slot))
		}
	}
	sortSlots(out)
	return out, nil
}

func (st slotStore) ListByInstructor(_ context.Context, instructorID string, from, to time.Time) ([]*model.Slot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*model.Slot
	for _, slot := range st.s.slots {
		a, ok := st.s.availabilities[slot.AvailabilityID]
		if !ok || a.InstructorID != instructorID {
			continue
		}
		if slot.IsCanceled || !slot.EndUTC.After(from) || !slot.StartUTC.Before(to) {
			continue
		}
		out = append(out, st.s.joinSlot(slot))
	}
	sortSlots(out)
	return out, nil
}

func (st slotStore) ActiveByStudent(_ context.Context, studentID string, now time.Time) (*model.Slot, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*model.Slot
	for _, slot := range st.s.slots {
		if slot.HeldBy(studentID) && !slot.IsCanceled && slot.EndUTC.After(now) {
			out = append(out, st.s.joinSlot(slot))
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	sortSlots(out)
	return out[0], nil
}

func (st slotStore) HasStartedSlots(_ context.Context, availabilityID uuid.UUID, now time.Time) (bool, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	for _, slot := range st.s.slots {
		if slot.AvailabilityID == availabilityID && slot.StartUTC.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func (st slotStore) Claim(_ context.Context, slotID uuid.UUID, studentID string, now time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	slot, ok := st.s.slots[slotID]
	if ok && st.s.BeforeClaim != nil {
		st.s.BeforeClaim(slot)
	}
	if !ok || !slot.IsBookable(now) {
		return fmt.Errorf("slot %s: %w", slotID, scherrors.ErrSlotUnavailable)
	}
	sid := studentID
	slot.StudentID = &sid
	return nil
}

func (st slotStore) Release(_ context.Context, slotID uuid.UUID, studentID string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	slot, ok := st.s.slots[slotID]
	if !ok || !slot.HeldBy(studentID) {
		return fmt.Errorf("slot %s no longer held by %s: %w", slotID, studentID, scherrors.ErrStorageConflict)
	}
	slot.StudentID = nil
	return nil
}

func (st slotStore) CancelOverlapping(_ context.Context, period *model.BlockedPeriod) ([]uuid.UUID, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var ids []uuid.UUID
	for _, slot := range st.s.slots {
		a, ok := st.s.availabilities[slot.AvailabilityID]
		if !ok || a.InstructorID != period.InstructorID || !period.AppliesToRoom(a.RoomID) {
			continue
		}
		if slot.IsCanceled || !slot.StartUTC.Before(period.ToUTC) || !slot.EndUTC.After(period.FromUTC) {
			continue
		}
		slot.StudentID = nil
		slot.IsCanceled = true
		ids = append(ids, slot.ID)
	}
	sortIDs(ids)
	return ids, nil
}

func (st slotStore) FreeAllForStudent(_ context.Context, studentID string, now time.Time) ([]uuid.UUID, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var ids []uuid.UUID
	for _, slot := range st.s.slots {
		if slot.HeldBy(studentID) && !slot.IsCanceled && slot.EndUTC.After(now) {
			slot.StudentID = nil
			ids = append(ids, slot.ID)
		}
	}
	sortIDs(ids)
	return ids, nil
}

type blockedPeriodStore struct{ s *Store }

func (st blockedPeriodStore) Create(_ context.Context, period *model.BlockedPeriod) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = time.Now().UTC()
	}
	cp := *period
	st.s.blockedPeriods[period.ID] = &cp
	return nil
}

func (st blockedPeriodStore) ListByInstructor(_ context.Context, instructorID string) ([]*model.BlockedPeriod, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var out []*model.BlockedPeriod
	for _, p := range st.s.blockedPeriods {
		if p.InstructorID != instructorID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FromUTC.Equal(out[j].FromUTC) {
			return out[i].FromUTC.Before(out[j].FromUTC)
		}
		return idLess(out[i].ID, out[j].ID)
	})
	return out, nil
}

type banStore struct{ s *Store }

func (st banStore) GetByStudent(_ context.Context, studentID string) (*model.StudentBan, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	ban, ok := st.s.bans[studentID]
	if !ok {
		return nil, nil
	}
	cp := *ban
	return &cp, nil
}

func (st banStore) Upsert(_ context.Context, ban *model.StudentBan) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := st.s.bans[ban.StudentID]; ok {
		existing.Reason = ban.Reason
		existing.UntilUTC = ban.UntilUTC
		existing.UpdatedAt = now
		ban.ID = existing.ID
		ban.CreatedAt = existing.CreatedAt
		ban.UpdatedAt = existing.UpdatedAt
		return nil
	}
	ban.CreatedAt = now
	ban.UpdatedAt = now
	cp := *ban
	st.s.bans[ban.StudentID] = &cp
	return nil
}

func (st banStore) List(_ context.Context) ([]*model.StudentBan, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	bans := make([]*model.StudentBan, 0, len(st.s.bans))
	for _, ban := range st.s.bans {
		cp := *ban
		bans = append(bans, &cp)
	}
	sort.Slice(bans, func(i, j int) bool {
		if !bans[i].CreatedAt.Equal(bans[j].CreatedAt) {
			return bans[i].CreatedAt.After(bans[j].CreatedAt)
		}
		return idLess(bans[i].ID, bans[j].ID)
	})
	return bans, nil
}

func (st banStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var deleted int64
	for studentID, ban := range st.s.bans {
		if ban.UntilUTC != nil && !ban.UntilUTC.After(now) {
			delete(st.s.bans, studentID)
			deleted++
		}
	}
	return deleted, nil
}

var _ service.Store = (*Store)(nil)
