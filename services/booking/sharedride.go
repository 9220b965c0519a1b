package booking

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/services/geo"
	"ridelink/utils"
)

// SharedRidePool matches shared-ride bookings into groups and keeps the
// per-passenger split consistent as members join.
type SharedRidePool interface {
	FindCompatible(ctx context.Context, bookingID string) ([]models.GroupMatch, error)
	Join(ctx context.Context, bookingID, groupID string) (*models.SharedRideGroup, error)
	CreateGroup(ctx context.Context, bookingID string) (*models.SharedRideGroup, error)
	RemoveMember(ctx context.Context, bookingID string) error
}

// DefaultSharedRidePool implements SharedRidePool over the group repository,
// guarded by a per-group lock so concurrent joiners cannot compute splits
// from stale member counts.
type DefaultSharedRidePool struct {
	Bookings repository.BookingRepository
	Groups   repository.GroupRepository
	Locker   utils.GroupLocker
}

func NewSharedRidePool(bookings repository.BookingRepository, groups repository.GroupRepository, locker utils.GroupLocker) *DefaultSharedRidePool {
	return &DefaultSharedRidePool{Bookings: bookings, Groups: groups, Locker: locker}
}

// FindCompatible scores open recent groups against the booking's route and
// returns those above the pooling threshold, best first. Full groups and
// groups whose leader booking is no longer matchable are skipped even when
// their score qualifies.
func (p *DefaultSharedRidePool) FindCompatible(ctx context.Context, bookingID string) ([]models.GroupMatch, error) {
	b, err := p.pooledBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	recency := time.Duration(config.AppConfig.PoolRecencyWindowMin) * time.Minute
	if recency == 0 {
		recency = 15 * time.Minute
	}
	groups, err := p.Groups.FindOpenSince(ctx, time.Now().Add(-recency))
	if err != nil {
		return nil, utils.UpstreamError("group search failed: %v", err)
	}

	threshold := config.AppConfig.PoolScoreThreshold
	if threshold == 0 {
		threshold = 0.7
	}
	route := geo.Route{Pickup: b.Pickup, Dropoff: b.Dropoff}

	matches := []models.GroupMatch{}
	for _, g := range groups {
		if g.Full() {
			continue
		}
		if !p.leaderActive(ctx, &g) {
			continue
		}
		score := geo.RouteSimilarity(route, geo.Route{Pickup: g.Pickup, Dropoff: g.Dropoff})
		if score < threshold {
			continue
		}
		matches = append(matches, models.GroupMatch{
			Group:     g,
			Score:     score,
			Occupancy: g.Occupancy(),
			Capacity:  g.MaxCapacity,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Group.ID < matches[j].Group.ID
	})
	return matches, nil
}

// Join adds the booking to the group and resplits the total across all
// members, including retroactively repricing earlier joiners. Runs under the
// group lock end to end.
func (p *DefaultSharedRidePool) Join(ctx context.Context, bookingID, groupID string) (*models.SharedRideGroup, error) {
	b, err := p.pooledBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ServiceData.SharedRide != nil && b.ServiceData.SharedRide.GroupID != "" {
		return nil, utils.ConflictError("booking %s already belongs to group %s", bookingID, b.ServiceData.SharedRide.GroupID)
	}

	release, err := p.Locker.Acquire(ctx, "group:"+groupID, 10*time.Second)
	if err != nil {
		return nil, utils.UpstreamError("could not lock group %s: %v", groupID, err)
	}
	defer release()

	g, err := p.Groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.Open {
		return nil, utils.ConflictError("group %s is closed", groupID)
	}
	if g.Full() {
		return nil, utils.ConflictError("group %s is at capacity", groupID)
	}
	// A leader who cancelled or got matched individually freezes the group.
	if !p.leaderActive(ctx, g) {
		if err := p.Groups.Close(ctx, groupID); err != nil {
			zap.L().Error("failed to close dead group", zap.String("group_id", groupID), zap.Error(err))
		}
		return nil, utils.ConflictError("group %s leader is no longer active", groupID)
	}

	// The joiner contributes their own full estimate to the pot; everyone
	// then pays an equal share of the new total.
	newTotal := g.TotalPrice + b.EstimatedPrice
	appended, err := p.Groups.AppendMember(ctx, groupID, bookingID, newTotal, g.MaxCapacity)
	if err != nil {
		return nil, utils.UpstreamError("failed to join group %s: %v", groupID, err)
	}
	if !appended {
		return nil, utils.ConflictError("group %s filled or closed concurrently", groupID)
	}

	g.MemberBookings = append(g.MemberBookings, bookingID)
	g.TotalPrice = newTotal
	share := splitShare(newTotal, len(g.MemberBookings))

	// Reprice every member, the joiner included. A member failing to
	// reprice is logged and corrected on the next join or at close.
	for _, memberID := range g.MemberBookings {
		if err := p.Bookings.SetSharePrice(ctx, memberID, share); err != nil {
			zap.L().Error("failed to reprice group member",
				zap.String("group_id", groupID),
				zap.String("booking_id", memberID),
				zap.Error(err))
		}
	}

	if err := p.Bookings.SetPoolingState(ctx, bookingID, groupID, !g.Full()); err != nil {
		zap.L().Error("failed to link booking to group", zap.String("booking_id", bookingID), zap.Error(err))
	}

	// A full group stops waiting: every member becomes dispatchable, not
	// just the last joiner.
	if g.Full() {
		if err := p.Groups.Close(ctx, groupID); err != nil {
			zap.L().Error("failed to close full group", zap.String("group_id", groupID), zap.Error(err))
		}
		g.Open = false
		for _, memberID := range g.MemberBookings {
			if memberID == bookingID {
				continue
			}
			if err := p.Bookings.SetPoolingState(ctx, memberID, groupID, false); err != nil {
				zap.L().Error("failed to release group member for dispatch",
					zap.String("group_id", groupID),
					zap.String("booking_id", memberID),
					zap.Error(err))
			}
		}
	}
	return g, nil
}

// RemoveMember detaches a cancelled booking from its group. A departing
// leader freezes the group and frees the remaining members for individual
// dispatch; any other departure just resplits the pot across who is left.
func (p *DefaultSharedRidePool) RemoveMember(ctx context.Context, bookingID string) error {
	b, err := p.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	sd := b.ServiceData.SharedRide
	if sd == nil || sd.GroupID == "" {
		return nil
	}
	groupID := sd.GroupID

	release, err := p.Locker.Acquire(ctx, "group:"+groupID, 10*time.Second)
	if err != nil {
		return utils.UpstreamError("could not lock group %s: %v", groupID, err)
	}
	defer release()

	g, err := p.Groups.GetByID(ctx, groupID)
	if err != nil {
		if utils.IsKind(err, utils.ErrNotFound) {
			return nil
		}
		return err
	}

	remaining := make([]string, 0, len(g.MemberBookings))
	for _, memberID := range g.MemberBookings {
		if memberID != bookingID {
			remaining = append(remaining, memberID)
		}
	}

	if bookingID == g.LeaderBookingID || len(remaining) == 0 {
		if g.Open {
			if err := p.Groups.Close(ctx, groupID); err != nil {
				zap.L().Error("failed to close group after leader left", zap.String("group_id", groupID), zap.Error(err))
			}
		}
		for _, memberID := range remaining {
			if err := p.Bookings.SetPoolingState(ctx, memberID, groupID, false); err != nil {
				zap.L().Error("failed to release group member for dispatch",
					zap.String("group_id", groupID),
					zap.String("booking_id", memberID),
					zap.Error(err))
			}
		}
		return nil
	}

	// Everyone contributed an equal share, so the departing member takes
	// exactly one share out of the pot and the split stays balanced.
	newTotal := g.TotalPrice - splitShare(g.TotalPrice, len(g.MemberBookings))
	removed, err := p.Groups.RemoveMember(ctx, groupID, bookingID, newTotal)
	if err != nil {
		return utils.UpstreamError("failed to remove booking %s from group %s: %v", bookingID, groupID, err)
	}
	if !removed {
		return nil
	}

	share := splitShare(newTotal, len(remaining))
	for _, memberID := range remaining {
		if err := p.Bookings.SetSharePrice(ctx, memberID, share); err != nil {
			zap.L().Error("failed to reprice group member",
				zap.String("group_id", groupID),
				zap.String("booking_id", memberID),
				zap.Error(err))
		}
	}
	return nil
}

// leaderActive reports whether the group's leader booking is still matchable.
// Lookup failures count as inactive; a group anchored on a missing booking
// should never accept joiners.
func (p *DefaultSharedRidePool) leaderActive(ctx context.Context, g *models.SharedRideGroup) bool {
	leader, err := p.Bookings.GetByID(ctx, g.LeaderBookingID)
	if err != nil {
		return false
	}
	return leader.Status.Matchable()
}

// CreateGroup opens a new pool anchored on the booking's route, with the
// booking as leader and sole member.
func (p *DefaultSharedRidePool) CreateGroup(ctx context.Context, bookingID string) (*models.SharedRideGroup, error) {
	b, err := p.pooledBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ServiceData.SharedRide != nil && b.ServiceData.SharedRide.GroupID != "" {
		return nil, utils.ConflictError("booking %s already belongs to group %s", bookingID, b.ServiceData.SharedRide.GroupID)
	}

	capacity := config.AppConfig.PoolMaxCapacity
	if capacity == 0 {
		capacity = 4
	}
	g := &models.SharedRideGroup{
		ID:              uuid.New().String(),
		LeaderBookingID: bookingID,
		MemberBookings:  []string{bookingID},
		Pickup:          b.Pickup,
		Dropoff:         b.Dropoff,
		TotalPrice:      b.EstimatedPrice,
		MaxCapacity:     capacity,
		Open:            true,
		CreatedAt:       time.Now(),
	}
	if err := p.Groups.Create(ctx, g); err != nil {
		return nil, utils.UpstreamError("failed to create group: %v", err)
	}

	if err := p.Bookings.SetPoolingState(ctx, bookingID, g.ID, true); err != nil {
		zap.L().Error("failed to link leader to group", zap.String("booking_id", bookingID), zap.Error(err))
	}
	return g, nil
}

// pooledBooking loads a booking and verifies it is an open shared-ride
// request.
func (p *DefaultSharedRidePool) pooledBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := p.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Kind != models.KindSharedRide {
		return nil, utils.ValidationError("booking %s is %s, not a shared ride", bookingID, b.Kind)
	}
	if !b.Status.Matchable() {
		return nil, utils.InvalidStateError("booking %s is %s and cannot be pooled", bookingID, b.Status)
	}
	return b, nil
}

// splitShare is the equal per-passenger amount, rounded to cents.
func splitShare(total float64, members int) float64 {
	if members == 0 {
		return 0
	}
	return math.Round(total/float64(members)*100) / 100
}
