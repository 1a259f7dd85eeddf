package inventory

import (
	"context"
	"sync"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Publisher receives seat events. Publish must not block.
type Publisher interface {
	Publish(ev entity.SeatEvent)
}

// LayoutLoader supplies the seat map of a showtime the first time it is touched.
type LayoutLoader interface {
	LoadLayout(ctx context.Context, showtimeID string) ([]entity.Seat, error)
}

type FailReason string

const (
	ReasonAlreadyLocked FailReason = "AlreadyLocked"
	ReasonAlreadySold   FailReason = "AlreadySold"
	ReasonBlocked       FailReason = "Blocked"
	ReasonUnknownSeat   FailReason = "UnknownSeat"
)

type LockResult struct {
	Succeeded   []string
	Failed      map[string]FailReason
	LockedUntil time.Time
}

type ReplaceResult struct {
	Released    []string
	Succeeded   []string
	Failed      map[string]FailReason
	LockedUntil time.Time
	// Applied is false when an all-or-nothing replace was rolled back.
	Applied bool
}

type Snapshot struct {
	ShowtimeID string        `json:"showtime_id"`
	Seq        uint64        `json:"seq"`
	TakenAt    time.Time     `json:"taken_at"`
	Seats      []entity.Seat `json:"seats"`
}

// Inventory owns seat status for every loaded showtime. Each showtime has
// its own mutex; operations on different showtimes never contend.
type Inventory struct {
	mu        sync.RWMutex
	showtimes map[string]*showtime
	group     singleflight.Group

	loader LayoutLoader
	bus    Publisher
	clock  utils.Clock
	log    *zap.Logger
}

type showtime struct {
	id    string
	mu    sync.Mutex
	seats map[string]*entity.Seat
	order []string
	seq   uint64
}

func New(loader LayoutLoader, bus Publisher, clock utils.Clock, log *zap.Logger) *Inventory {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Inventory{
		showtimes: make(map[string]*showtime),
		loader:    loader,
		bus:       bus,
		clock:     clock,
		log:       log.With(zap.String("component", "seat_inventory")),
	}
}

// Register installs a showtime layout directly, replacing nothing if the
// showtime is already loaded.
func (inv *Inventory) Register(showtimeID string, seats []entity.Seat) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.showtimes[showtimeID]; ok {
		return
	}
	inv.showtimes[showtimeID] = newShowtime(showtimeID, seats)
}

func newShowtime(id string, seats []entity.Seat) *showtime {
	st := &showtime{
		id:    id,
		seats: make(map[string]*entity.Seat, len(seats)),
		order: make([]string, 0, len(seats)),
	}
	for _, s := range seats {
		seat := s
		seat.ShowtimeID = id
		seat.LockedBy = ""
		seat.LockedUntil = nil
		// locks live in memory only
		if seat.Status == entity.SeatLocked || seat.Status == "" {
			seat.Status = entity.SeatAvailable
		}
		if _, dup := st.seats[seat.ID]; dup {
			continue
		}
		st.seats[seat.ID] = &seat
		st.order = append(st.order, seat.ID)
	}
	return st
}

func (inv *Inventory) showtime(ctx context.Context, showtimeID string) (*showtime, error) {
	inv.mu.RLock()
	st := inv.showtimes[showtimeID]
	inv.mu.RUnlock()
	if st != nil {
		return st, nil
	}
	if inv.loader == nil {
		return nil, apperr.ErrShowtimeNotFound
	}

	v, err, _ := inv.group.Do(showtimeID, func() (any, error) {
		inv.mu.RLock()
		existing := inv.showtimes[showtimeID]
		inv.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// shared by every waiter, so one caller going away must not fail the rest
		seats, err := inv.loader.LoadLayout(context.WithoutCancel(ctx), showtimeID)
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return nil, err
			}
			return nil, apperr.Wrap(apperr.Internal, err, "load layout for showtime %s", showtimeID)
		}
		if len(seats) == 0 {
			return nil, apperr.ErrShowtimeNotFound
		}

		inv.mu.Lock()
		defer inv.mu.Unlock()
		if existing := inv.showtimes[showtimeID]; existing != nil {
			return existing, nil
		}
		loaded := newShowtime(showtimeID, seats)
		inv.showtimes[showtimeID] = loaded
		inv.log.Info("Showtime layout loaded",
			zap.String("showtime_id", showtimeID),
			zap.Int("seat_count", len(loaded.order)),
		)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*showtime), nil
}

// emit must be called with st.mu held so sequence numbers reach the bus in order.
func (inv *Inventory) emit(st *showtime, seat *entity.Seat, kind entity.SeatEventKind, now time.Time) {
	st.seq++
	ev := entity.SeatEvent{
		ShowtimeID: st.id,
		SeatID:     seat.ID,
		Kind:       kind,
		Seq:        st.seq,
		OccurredAt: now,
	}
	if kind == entity.SeatEventLocked && seat.LockedUntil != nil {
		until := *seat.LockedUntil
		ev.LockedUntil = &until
	}
	if inv.bus != nil {
		inv.bus.Publish(ev)
	}
}

// expireSeat reverts a lapsed lock. Caller holds st.mu.
func (inv *Inventory) expireSeat(st *showtime, seat *entity.Seat, now time.Time) bool {
	if seat.Status != entity.SeatLocked || seat.LockedUntil == nil || seat.LockedUntil.After(now) {
		return false
	}
	seat.Status = entity.SeatAvailable
	seat.LockedUntil = nil
	seat.LockedBy = ""
	inv.emit(st, seat, entity.SeatEventReleased, now)
	return true
}

func (inv *Inventory) lockSeat(st *showtime, seatID, sessionID string, now, until time.Time) FailReason {
	st.mu.Lock()
	defer st.mu.Unlock()

	seat, ok := st.seats[seatID]
	if !ok {
		return ReasonUnknownSeat
	}
	inv.expireSeat(st, seat, now)

	switch seat.Status {
	case entity.SeatSold:
		return ReasonAlreadySold
	case entity.SeatBlocked:
		return ReasonBlocked
	case entity.SeatLocked:
		if seat.LockedBy != sessionID {
			return ReasonAlreadyLocked
		}
	}

	seat.Status = entity.SeatLocked
	seat.LockedBy = sessionID
	lockedUntil := until
	seat.LockedUntil = &lockedUntil
	inv.emit(st, seat, entity.SeatEventLocked, now)
	return ""
}

func (inv *Inventory) releaseSeat(st *showtime, seatID, sessionID string, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	seat, ok := st.seats[seatID]
	if !ok {
		return false
	}
	if inv.expireSeat(st, seat, now) {
		return false
	}
	if seat.Status != entity.SeatLocked || seat.LockedBy != sessionID {
		return false
	}
	seat.Status = entity.SeatAvailable
	seat.LockedBy = ""
	seat.LockedUntil = nil
	inv.emit(st, seat, entity.SeatEventReleased, now)
	return true
}

func validateLockArgs(seatIDs []string, sessionID string, ttl time.Duration) error {
	if len(seatIDs) == 0 {
		return apperr.ErrNoSeats
	}
	if sessionID == "" {
		return apperr.New(apperr.Validation, "session id is required")
	}
	if ttl <= 0 {
		return apperr.New(apperr.Validation, "lock ttl must be positive")
	}
	return nil
}

// TryLock locks each seat independently. Seats already locked by the same
// session are refreshed. The batch is not all-or-nothing.
func (inv *Inventory) TryLock(ctx context.Context, showtimeID string, seatIDs []string, sessionID string, ttl time.Duration) (*LockResult, error) {
	if err := validateLockArgs(seatIDs, sessionID, ttl); err != nil {
		return nil, err
	}
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	now := inv.clock.Now()
	result := &LockResult{
		Succeeded:   make([]string, 0, len(seatIDs)),
		Failed:      make(map[string]FailReason),
		LockedUntil: now.Add(ttl),
	}
	for _, id := range utils.Dedupe(seatIDs) {
		if reason := inv.lockSeat(st, id, sessionID, now, result.LockedUntil); reason != "" {
			result.Failed[id] = reason
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	inv.log.Debug("Seats locked",
		zap.String("showtime_id", showtimeID),
		zap.String("session_id", sessionID),
		zap.Strings("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// Release frees seats locked by sessionID; anything else is skipped.
func (inv *Inventory) Release(ctx context.Context, showtimeID string, seatIDs []string, sessionID string) ([]string, error) {
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	now := inv.clock.Now()
	released := make([]string, 0, len(seatIDs))
	for _, id := range utils.Dedupe(seatIDs) {
		if inv.releaseSeat(st, id, sessionID, now) {
			released = append(released, id)
		}
	}
	return released, nil
}

// HeldBy splits seatIDs into those still locked by sessionID and the rest.
func (inv *Inventory) HeldBy(ctx context.Context, showtimeID string, seatIDs []string, sessionID string) (held, lost []string, err error) {
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, nil, err
	}
	now := inv.clock.Now()
	for _, id := range utils.Dedupe(seatIDs) {
		if inv.holds(st, id, sessionID, now) {
			held = append(held, id)
		} else {
			lost = append(lost, id)
		}
	}
	return held, lost, nil
}

func (inv *Inventory) holds(st *showtime, seatID, sessionID string, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	seat, ok := st.seats[seatID]
	if !ok {
		return false
	}
	inv.expireSeat(st, seat, now)
	return seat.Status == entity.SeatLocked && seat.LockedBy == sessionID
}

// Extend pushes the lock deadline of seats held by sessionID without
// publishing events. Seats no longer held are returned in lost.
func (inv *Inventory) Extend(ctx context.Context, showtimeID string, seatIDs []string, sessionID string, ttl time.Duration) (held, lost []string, err error) {
	if ttl <= 0 {
		return nil, nil, apperr.New(apperr.Validation, "lock ttl must be positive")
	}
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, nil, err
	}
	now := inv.clock.Now()
	until := now.Add(ttl)
	for _, id := range utils.Dedupe(seatIDs) {
		if inv.extendSeat(st, id, sessionID, now, until) {
			held = append(held, id)
		} else {
			lost = append(lost, id)
		}
	}
	return held, lost, nil
}

func (inv *Inventory) extendSeat(st *showtime, seatID, sessionID string, now, until time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	seat, ok := st.seats[seatID]
	if !ok {
		return false
	}
	inv.expireSeat(st, seat, now)
	if seat.Status != entity.SeatLocked || seat.LockedBy != sessionID {
		return false
	}
	if seat.LockedUntil == nil || seat.LockedUntil.Before(until) {
		u := until
		seat.LockedUntil = &u
	}
	return true
}

func (inv *Inventory) heldSeats(st *showtime, sessionID string, now time.Time) []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	var held []string
	for _, id := range st.order {
		seat := st.seats[id]
		inv.expireSeat(st, seat, now)
		if seat.Status == entity.SeatLocked && seat.LockedBy == sessionID {
			held = append(held, id)
		}
	}
	return held
}

// Replace makes the session hold seatIDs: seats held but not requested are
// released, requested seats are locked or refreshed. With allOrNothing the
// new seats are locked first and rolled back if any fails, leaving the
// previous holding untouched.
func (inv *Inventory) Replace(ctx context.Context, showtimeID string, seatIDs []string, sessionID string, ttl time.Duration, allOrNothing bool) (*ReplaceResult, error) {
	if err := validateLockArgs(seatIDs, sessionID, ttl); err != nil {
		return nil, err
	}
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	now := inv.clock.Now()
	desired := utils.Dedupe(seatIDs)
	held := inv.heldSeats(st, sessionID, now)
	removed := utils.Difference(held, desired)
	added := utils.Difference(desired, held)
	kept := utils.Difference(desired, added)

	result := &ReplaceResult{
		Failed:      make(map[string]FailReason),
		LockedUntil: now.Add(ttl),
		Applied:     true,
	}

	if allOrNothing {
		var acquired []string
		for _, id := range added {
			if reason := inv.lockSeat(st, id, sessionID, now, result.LockedUntil); reason != "" {
				result.Failed[id] = reason
				continue
			}
			acquired = append(acquired, id)
		}
		if len(result.Failed) > 0 {
			for _, id := range acquired {
				inv.releaseSeat(st, id, sessionID, now)
			}
			result.Applied = false
			result.Succeeded = held
			return result, nil
		}
		for _, id := range removed {
			if inv.releaseSeat(st, id, sessionID, now) {
				result.Released = append(result.Released, id)
			}
		}
		for _, id := range kept {
			if reason := inv.lockSeat(st, id, sessionID, now, result.LockedUntil); reason != "" {
				result.Failed[id] = reason
				continue
			}
		}
		result.Succeeded = utils.Difference(desired, keys(result.Failed))
		return result, nil
	}

	for _, id := range removed {
		if inv.releaseSeat(st, id, sessionID, now) {
			result.Released = append(result.Released, id)
		}
	}
	for _, id := range desired {
		if reason := inv.lockSeat(st, id, sessionID, now, result.LockedUntil); reason != "" {
			result.Failed[id] = reason
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func keys(m map[string]FailReason) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// MarkSold turns seats locked by sessionID into SOLD. Nothing is sold when
// any seat fails the initial ownership check; a seat lost between the check
// and the sale is reported together with the seats already sold.
func (inv *Inventory) MarkSold(ctx context.Context, showtimeID string, seatIDs []string, sessionID string) ([]string, error) {
	if len(seatIDs) == 0 {
		return nil, apperr.ErrNoSeats
	}
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	now := inv.clock.Now()
	ids := utils.Dedupe(seatIDs)
	var mismatched []string
	for _, id := range ids {
		if !inv.holds(st, id, sessionID, now) {
			mismatched = append(mismatched, id)
		}
	}
	if len(mismatched) > 0 {
		return nil, apperr.ErrLockMismatch.WithDetails(mismatched)
	}

	sold := make([]string, 0, len(ids))
	for _, id := range ids {
		if inv.sellSeat(st, id, sessionID, now) {
			sold = append(sold, id)
		} else {
			mismatched = append(mismatched, id)
		}
	}
	if len(mismatched) > 0 {
		return sold, apperr.ErrLockMismatch.WithDetails(mismatched)
	}
	return sold, nil
}

func (inv *Inventory) sellSeat(st *showtime, seatID, sessionID string, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	seat, ok := st.seats[seatID]
	if !ok {
		return false
	}
	inv.expireSeat(st, seat, now)
	if seat.Status != entity.SeatLocked || seat.LockedBy != sessionID {
		return false
	}
	seat.Status = entity.SeatSold
	seat.LockedBy = ""
	seat.LockedUntil = nil
	inv.emit(st, seat, entity.SeatEventSold, now)
	return true
}

// ExpireLocks reverts every lapsed lock across all loaded showtimes and
// returns how many seats were released.
func (inv *Inventory) ExpireLocks(now time.Time) int {
	inv.mu.RLock()
	list := make([]*showtime, 0, len(inv.showtimes))
	for _, st := range inv.showtimes {
		list = append(list, st)
	}
	inv.mu.RUnlock()

	released := 0
	for _, st := range list {
		for _, id := range st.order {
			st.mu.Lock()
			if inv.expireSeat(st, st.seats[id], now) {
				released++
			}
			st.mu.Unlock()
		}
	}
	if released > 0 {
		inv.log.Info("Expired seat locks released", zap.Int("count", released))
	}
	return released
}

// Snapshot returns the seat map with lapsed locks already released.
func (inv *Inventory) Snapshot(ctx context.Context, showtimeID string) (*Snapshot, error) {
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	now := inv.clock.Now()

	st.mu.Lock()
	defer st.mu.Unlock()
	snap := &Snapshot{
		ShowtimeID: showtimeID,
		TakenAt:    now,
		Seats:      make([]entity.Seat, 0, len(st.order)),
	}
	for _, id := range st.order {
		seat := st.seats[id]
		inv.expireSeat(st, seat, now)
		cp := *seat
		if seat.LockedUntil != nil {
			until := *seat.LockedUntil
			cp.LockedUntil = &until
		}
		snap.Seats = append(snap.Seats, cp)
	}
	snap.Seq = st.seq
	return snap, nil
}

// Lookup returns copies of the requested seats with lapsed locks released;
// unknown ids are an error.
func (inv *Inventory) Lookup(ctx context.Context, showtimeID string, seatIDs []string) ([]entity.Seat, error) {
	st, err := inv.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	now := inv.clock.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]entity.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := st.seats[id]
		if !ok {
			return nil, apperr.New(apperr.NotFound, "seat %s not found", id)
		}
		inv.expireSeat(st, seat, now)
		cp := *seat
		if seat.LockedUntil != nil {
			until := *seat.LockedUntil
			cp.LockedUntil = &until
		}
		out = append(out, cp)
	}
	return out, nil
}
