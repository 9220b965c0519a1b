package booking

import (
	"context"
	"sync"
	"time"

	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/utils"
)

// memBookingRepo is an in-memory BookingRepository with the same conditional
// write semantics as the mongo implementation.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: map[string]*models.Booking{}}
}

func (r *memBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, utils.NotFoundError("booking %s not found", id)
	}
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) List(ctx context.Context, f repository.BookingListFilter) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		if f.ProviderID != "" && (b.ProviderID == nil || *b.ProviderID != f.ProviderID) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (r *memBookingRepo) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, patch repository.StatusPatch) (bool, error) {
	return r.UpdateStatusFromAny(ctx, id, []models.BookingStatus{from}, to, patch)
}

func (r *memBookingRepo) UpdateStatusFromAny(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus, patch repository.StatusPatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	legal := false
	for _, s := range from {
		if b.Status == s {
			legal = true
			break
		}
	}
	if !legal {
		return false, nil
	}
	b.Status = to
	if patch.ProviderID != nil {
		b.ProviderID = patch.ProviderID
	}
	if patch.AcceptedAt != nil {
		b.AcceptedAt = patch.AcceptedAt
	}
	if patch.StartedAt != nil {
		b.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		b.CompletedAt = patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		b.CancelledAt = patch.CancelledAt
	}
	if patch.FinalPrice != nil {
		b.FinalPrice = patch.FinalPrice
	}
	if patch.Commission != nil {
		b.Commission = *patch.Commission
	}
	if patch.ProviderEarning != nil {
		b.ProviderEarning = *patch.ProviderEarning
	}
	if patch.CancelledBy != "" {
		b.CancelledBy = patch.CancelledBy
	}
	if patch.CancellationReason != "" {
		b.CancellationReason = patch.CancellationReason
	}
	if patch.CancellationFee != nil {
		b.CancellationFee = *patch.CancellationFee
	}
	if patch.GroupID != "" || patch.AwaitingPartners != nil || patch.SharePrice != nil {
		if b.ServiceData.SharedRide == nil {
			b.ServiceData.SharedRide = &models.SharedRideData{}
		}
		if patch.GroupID != "" {
			b.ServiceData.SharedRide.GroupID = patch.GroupID
		}
		if patch.AwaitingPartners != nil {
			b.ServiceData.SharedRide.AwaitingPartners = *patch.AwaitingPartners
		}
		if patch.SharePrice != nil {
			b.ServiceData.SharedRide.SharePrice = *patch.SharePrice
		}
	}
	return true, nil
}

func (r *memBookingRepo) SetSharePrice(ctx context.Context, bookingID string, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return utils.NotFoundError("booking %s not found", bookingID)
	}
	b.EstimatedPrice = price
	if b.ServiceData.SharedRide == nil {
		b.ServiceData.SharedRide = &models.SharedRideData{}
	}
	b.ServiceData.SharedRide.SharePrice = price
	return nil
}

func (r *memBookingRepo) SetPoolingState(ctx context.Context, bookingID, groupID string, awaiting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return utils.NotFoundError("booking %s not found", bookingID)
	}
	if b.ServiceData.SharedRide == nil {
		b.ServiceData.SharedRide = &models.SharedRideData{}
	}
	b.ServiceData.SharedRide.GroupID = groupID
	b.ServiceData.SharedRide.AwaitingPartners = awaiting
	return nil
}

func (r *memBookingRepo) FindStalePending(ctx context.Context, cutoff time.Time, limit int64) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status.Matchable() && b.ProviderID == nil && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// memProviderRepo mirrors the conditional availability claim.
type memProviderRepo struct {
	mu        sync.Mutex
	providers map[string]*models.Provider
}

func newMemProviderRepo(providers ...models.Provider) *memProviderRepo {
	r := &memProviderRepo{providers: map[string]*models.Provider{}}
	for _, p := range providers {
		clone := p
		r.providers[p.ID] = &clone
	}
	return r
}

func (r *memProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, utils.NotFoundError("provider %s not found", id)
	}
	clone := *p
	return &clone, nil
}

func (r *memProviderRepo) FindAvailable(ctx context.Context, kind models.ServiceKind) ([]models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Provider
	for _, p := range r.providers {
		if p.Online && p.Available && p.ServesKind(kind) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memProviderRepo) ClaimAvailability(ctx context.Context, providerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[providerID]
	if !ok || !p.Online || !p.Available {
		return false, nil
	}
	p.Available = false
	return true, nil
}

func (r *memProviderRepo) ReleaseAvailability(ctx context.Context, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[providerID]
	if !ok {
		return utils.NotFoundError("provider %s not found", providerID)
	}
	p.Available = true
	return nil
}

func (r *memProviderRepo) UpdateLocation(ctx context.Context, providerID string, loc models.GeoPoint, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[providerID]
	if !ok {
		return utils.NotFoundError("provider %s not found", providerID)
	}
	p.LastLocation = loc
	p.LocationSeenAt = seenAt
	return nil
}

type memEarningsRepo struct {
	mu      sync.Mutex
	records []models.EarningRecord
}

func (r *memEarningsRepo) Append(ctx context.Context, rec *models.EarningRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *memEarningsRepo) ListByProvider(ctx context.Context, providerID, bucket string) ([]models.EarningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EarningRecord
	for _, rec := range r.records {
		if rec.ProviderID != providerID {
			continue
		}
		if bucket != "" && rec.WeekBucket != bucket && rec.MonthBucket != bucket {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type memTrackingRepo struct {
	mu     sync.Mutex
	events []models.TrackingEvent
}

func (r *memTrackingRepo) Append(ctx context.Context, ev *models.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *memTrackingRepo) ListByBooking(ctx context.Context, bookingID string, limit int64) ([]models.TrackingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TrackingEvent
	for _, ev := range r.events {
		if ev.BookingID == bookingID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type memGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*models.SharedRideGroup
}

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{groups: map[string]*models.SharedRideGroup{}}
}

func (r *memGroupRepo) Create(ctx context.Context, g *models.SharedRideGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *g
	clone.MemberBookings = append([]string(nil), g.MemberBookings...)
	r.groups[g.ID] = &clone
	return nil
}

func (r *memGroupRepo) GetByID(ctx context.Context, id string) (*models.SharedRideGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, utils.NotFoundError("shared-ride group %s not found", id)
	}
	clone := *g
	clone.MemberBookings = append([]string(nil), g.MemberBookings...)
	return &clone, nil
}

func (r *memGroupRepo) FindOpenSince(ctx context.Context, cutoff time.Time) ([]models.SharedRideGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SharedRideGroup
	for _, g := range r.groups {
		if g.Open && !g.CreatedAt.Before(cutoff) {
			clone := *g
			clone.MemberBookings = append([]string(nil), g.MemberBookings...)
			out = append(out, clone)
		}
	}
	return out, nil
}

func (r *memGroupRepo) AppendMember(ctx context.Context, groupID, bookingID string, newTotal float64, capacity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok || !g.Open || len(g.MemberBookings) >= capacity {
		return false, nil
	}
	for _, id := range g.MemberBookings {
		if id == bookingID {
			return false, nil
		}
	}
	g.MemberBookings = append(g.MemberBookings, bookingID)
	g.TotalPrice = newTotal
	return true, nil
}

func (r *memGroupRepo) RemoveMember(ctx context.Context, groupID, bookingID string, newTotal float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return false, nil
	}
	for i, id := range g.MemberBookings {
		if id == bookingID {
			g.MemberBookings = append(g.MemberBookings[:i], g.MemberBookings[i+1:]...)
			g.TotalPrice = newTotal
			return true, nil
		}
	}
	return false, nil
}

func (r *memGroupRepo) Close(ctx context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return utils.NotFoundError("shared-ride group %s not found", groupID)
	}
	g.Open = false
	return nil
}

// memLocker is a process-local GroupLocker.
type memLocker struct {
	mu sync.Mutex
}

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	return func() { l.mu.Unlock() }, nil
}

// staticResolver answers zone questions from fixed data.
type staticResolver struct {
	zones map[string]*models.ServiceZone // keyed by rough area
	elig  *models.InterRegionalEligibility
}

func (r *staticResolver) ResolveZone(ctx context.Context, p models.GeoPoint) (*models.ServiceZone, error) {
	for _, z := range r.zones {
		if z != nil && absF(z.Center.Lat-p.Lat) < 0.5 && absF(z.Center.Lng-p.Lng) < 0.5 {
			return z, nil
		}
	}
	return nil, nil
}

func (r *staticResolver) ZoneChanged(prev, cur models.GeoPoint) bool {
	return absF(cur.Lat-prev.Lat) > 0.1 || absF(cur.Lng-prev.Lng) > 0.1
}

func (r *staticResolver) CanCreateInterRegional(ctx context.Context, pickup, dropoff models.GeoPoint) (*models.InterRegionalEligibility, error) {
	if r.elig != nil {
		return r.elig, nil
	}
	return &models.InterRegionalEligibility{Allowed: false, Reason: "no route"}, nil
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// recordingQueue captures dispatch enqueues.
type recordingQueue struct {
	mu       sync.Mutex
	enqueued []string
}

func (q *recordingQueue) EnqueueDispatch(ctx context.Context, bookingID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, bookingID)
	return nil
}
