package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/models"
	"ridelink/services/geo"
	"ridelink/services/notification"
	"ridelink/services/realtime"
	"ridelink/utils"
)

// allowedTransitions is the booking state flow as code. Cancellation is
// handled separately because its legality depends on who cancels.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:    {models.StatusAssigned, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusAssigned, models.StatusCancelled},
	models.StatusAssigned:   {models.StatusArrived, models.StatusInProgress, models.StatusCancelled},
	models.StatusArrived:    {models.StatusInProgress},
	models.StatusInProgress: {models.StatusCompleted},
}

func canTransition(from, to models.BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DispatchQueue enqueues a matching pass for a booking. Backed by the async
// task queue so booking creation never blocks on dispatch.
type DispatchQueue interface {
	EnqueueDispatch(ctx context.Context, bookingID string, delay time.Duration) error
}

// GroupDetacher removes a cancelled booking from its shared-ride group.
type GroupDetacher interface {
	RemoveMember(ctx context.Context, bookingID string) error
}

// CreateRequest is a customer's booking request.
type CreateRequest struct {
	Kind        models.ServiceKind `json:"kind"`
	Pickup      models.GeoPoint    `json:"pickup"`
	Dropoff     models.GeoPoint    `json:"dropoff"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty"`
	ServiceData models.ServiceData `json:"service_data"`
}

// LifecycleService owns booking state and enforces legal transitions.
type LifecycleService interface {
	Create(ctx context.Context, customerID string, req CreateRequest) (*models.Booking, error)
	Get(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, actorID string, role models.ActorRole, f repository.BookingListFilter) ([]models.Booking, error)
	Assign(ctx context.Context, bookingID, providerID string) (*models.Booking, error)
	MarkArrived(ctx context.Context, bookingID, providerID string) (*models.Booking, error)
	Start(ctx context.Context, bookingID, providerID string) (*models.Booking, error)
	Complete(ctx context.Context, bookingID, providerID string, actuals models.CompletionActuals) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, actorID string, role models.ActorRole, reason string) (*models.Booking, error)
	Tracking(ctx context.Context, bookingID, actorID string, role models.ActorRole) ([]models.TrackingEvent, error)
}

// DefaultLifecycleService implements LifecycleService.
type DefaultLifecycleService struct {
	Bookings  repository.BookingRepository
	Providers repository.ProviderRepository
	Earnings  repository.EarningsRepository
	TrackRepo repository.TrackingRepository
	Resolver  geo.ZoneResolver
	Pricing   PricingOracle
	Notifier  notification.Notifier
	Broadcast realtime.Broadcaster
	Dispatch  DispatchQueue
	Pool      GroupDetacher
}

func (s *DefaultLifecycleService) Create(ctx context.Context, customerID string, req CreateRequest) (*models.Booking, error) {
	if customerID == "" {
		return nil, utils.ValidationError("customer id is required")
	}
	if !models.ValidServiceKind(req.Kind) {
		return nil, utils.ValidationError("unknown service kind %q", req.Kind)
	}
	if err := validateCoords(req.Pickup, req.Dropoff); err != nil {
		return nil, err
	}
	if err := validateServiceData(req.Kind, req.ServiceData); err != nil {
		return nil, err
	}

	pickupZone, err := s.Resolver.ResolveZone(ctx, req.Pickup)
	if err != nil {
		return nil, utils.UpstreamError("zone resolution failed: %v", err)
	}
	dropoffZone, err := s.Resolver.ResolveZone(ctx, req.Dropoff)
	if err != nil {
		return nil, utils.UpstreamError("zone resolution failed: %v", err)
	}

	var surcharge float64
	data := req.ServiceData
	if pickupZone != nil && dropoffZone != nil && pickupZone.ID != dropoffZone.ID {
		elig, err := s.Resolver.CanCreateInterRegional(ctx, req.Pickup, req.Dropoff)
		if err != nil {
			return nil, utils.UpstreamError("inter-regional check failed: %v", err)
		}
		if !elig.Allowed {
			return nil, utils.ValidationError("inter-regional booking not allowed: %s", elig.Reason)
		}
		surcharge = elig.Fee
		data.InterRegional = &models.InterRegionalData{
			OriginZoneID:      elig.OriginZone.ID,
			DestinationZoneID: elig.DestinationZone.ID,
			Surcharge:         elig.Fee,
			ApprovalRequired:  elig.ApprovalRequired,
		}
	}

	quote, err := s.Pricing.Estimate(ctx, req.Pickup, req.Dropoff, req.Kind, req.ScheduledAt)
	if err != nil {
		return nil, utils.UpstreamError("pricing oracle unavailable: %v", err)
	}

	switch req.Kind {
	case models.KindRide, models.KindTaxi, models.KindDelivery:
		if data.Ride == nil {
			data.Ride = &models.RideData{}
		}
		data.Ride.DistanceKm = quote.DistanceKm
		data.Ride.DurationMin = quote.DurationMin
	case models.KindSharedRide:
		if data.SharedRide == nil {
			data.SharedRide = &models.SharedRideData{AwaitingPartners: true}
		}
		data.SharedRide.SharePrice = quote.Price + surcharge
	}

	status := models.StatusPending
	if req.ScheduledAt != nil && req.ScheduledAt.After(time.Now()) {
		status = models.StatusConfirmed
	}

	b := &models.Booking{
		ID:             uuid.New().String(),
		CustomerID:     customerID,
		Kind:           req.Kind,
		Status:         status,
		Pickup:         req.Pickup,
		Dropoff:        req.Dropoff,
		ScheduledAt:    req.ScheduledAt,
		EstimatedPrice: quote.Price + surcharge,
		ServiceData:    data,
		CreatedAt:      time.Now(),
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, utils.UpstreamError("failed to persist booking: %v", err)
	}

	// Immediate bookings go straight to dispatch. A failed enqueue never
	// fails creation; the sweep picks the booking up later.
	if status == models.StatusPending && s.Dispatch != nil {
		if err := s.Dispatch.EnqueueDispatch(ctx, b.ID, 0); err != nil {
			zap.L().Error("failed to enqueue dispatch", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}

	s.broadcast(b.ID, "booking_created", b)
	return b, nil
}

func (s *DefaultLifecycleService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *DefaultLifecycleService) List(ctx context.Context, actorID string, role models.ActorRole, f repository.BookingListFilter) ([]models.Booking, error) {
	switch role {
	case models.RoleCustomer:
		f.CustomerID = actorID
	case models.RoleProvider:
		f.ProviderID = actorID
	default:
		return nil, utils.UnauthorizedError("unknown actor role %q", role)
	}
	return s.Bookings.List(ctx, f)
}

// Assign commits a provider to a pending booking. Both writes are
// conditional: the provider availability flip refuses a provider who is
// already engaged, and the booking status swap refuses a booking another
// provider already claimed. The loser of a race gets Conflict and should
// move on to the next candidate, not retry.
func (s *DefaultLifecycleService) Assign(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, utils.InvalidStateError("booking %s is %s", bookingID, b.Status)
	}

	claimed, err := s.Providers.ClaimAvailability(ctx, providerID)
	if err != nil {
		return nil, utils.UpstreamError("provider claim failed: %v", err)
	}
	if !claimed {
		return nil, utils.ConflictError("provider %s is not available", providerID)
	}

	now := time.Now()
	won, err := s.Bookings.UpdateStatusFromAny(ctx, bookingID,
		[]models.BookingStatus{models.StatusPending, models.StatusConfirmed},
		models.StatusAssigned,
		repository.StatusPatch{ProviderID: &providerID, AcceptedAt: &now},
	)
	if err != nil {
		s.releaseProvider(providerID)
		return nil, utils.UpstreamError("assignment write failed: %v", err)
	}
	if !won {
		s.releaseProvider(providerID)
		return nil, utils.ConflictError("booking %s already claimed", bookingID)
	}

	b.Status = models.StatusAssigned
	b.ProviderID = &providerID
	b.AcceptedAt = &now

	s.notifyCustomer(b.CustomerID, "provider_assigned", map[string]string{
		"booking_id":  b.ID,
		"provider_id": providerID,
	})
	s.broadcast(b.ID, "provider_assigned", b)
	return b, nil
}

func (s *DefaultLifecycleService) MarkArrived(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := s.authorizedProviderBooking(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	if !canTransition(b.Status, models.StatusArrived) {
		return nil, utils.InvalidStateError("cannot mark arrived from %s", b.Status)
	}
	won, err := s.Bookings.UpdateStatus(ctx, bookingID, models.StatusAssigned, models.StatusArrived, repository.StatusPatch{})
	if err != nil {
		return nil, utils.UpstreamError("arrival write failed: %v", err)
	}
	if !won {
		return nil, utils.ConflictError("booking %s changed state concurrently", bookingID)
	}
	b.Status = models.StatusArrived

	s.notifyCustomer(b.CustomerID, "provider_arrived", map[string]string{"booking_id": b.ID})
	s.broadcast(b.ID, "provider_arrived", b)
	return b, nil
}

func (s *DefaultLifecycleService) Start(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := s.authorizedProviderBooking(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	if !canTransition(b.Status, models.StatusInProgress) {
		return nil, utils.InvalidStateError("cannot start from %s", b.Status)
	}
	now := time.Now()
	won, err := s.Bookings.UpdateStatusFromAny(ctx, bookingID,
		[]models.BookingStatus{models.StatusAssigned, models.StatusArrived},
		models.StatusInProgress,
		repository.StatusPatch{StartedAt: &now},
	)
	if err != nil {
		return nil, utils.UpstreamError("start write failed: %v", err)
	}
	if !won {
		return nil, utils.ConflictError("booking %s changed state concurrently", bookingID)
	}
	b.Status = models.StatusInProgress
	b.StartedAt = &now

	s.broadcast(b.ID, "trip_started", b)
	return b, nil
}

func (s *DefaultLifecycleService) Complete(ctx context.Context, bookingID, providerID string, actuals models.CompletionActuals) (*models.Booking, error) {
	b, err := s.authorizedProviderBooking(ctx, bookingID, providerID)
	if err != nil {
		return nil, err
	}
	if !canTransition(b.Status, models.StatusCompleted) {
		return nil, utils.InvalidStateError("cannot complete from %s", b.Status)
	}

	finalPrice := b.EstimatedPrice
	if actuals.FinalPrice > 0 {
		finalPrice = actuals.FinalPrice
	}
	commission := roundMoney(finalPrice * config.CommissionRate(b.Kind))
	earning := roundMoney(finalPrice - commission)

	now := time.Now()
	won, err := s.Bookings.UpdateStatus(ctx, bookingID, models.StatusInProgress, models.StatusCompleted,
		repository.StatusPatch{
			CompletedAt:     &now,
			FinalPrice:      &finalPrice,
			Commission:      &commission,
			ProviderEarning: &earning,
		},
	)
	if err != nil {
		return nil, utils.UpstreamError("completion write failed: %v", err)
	}
	if !won {
		return nil, utils.ConflictError("booking %s changed state concurrently", bookingID)
	}
	b.Status = models.StatusCompleted
	b.CompletedAt = &now
	b.FinalPrice = &finalPrice
	b.Commission = commission
	b.ProviderEarning = earning

	s.releaseProvider(providerID)

	if s.Earnings != nil {
		year, week := now.ISOWeek()
		rec := &models.EarningRecord{
			ID:          uuid.New().String(),
			ProviderID:  providerID,
			BookingID:   b.ID,
			Kind:        b.Kind,
			Amount:      finalPrice,
			Commission:  commission,
			Net:         earning,
			WeekBucket:  fmt.Sprintf("%d-W%02d", year, week),
			MonthBucket: now.Format("2006-01"),
			CreatedAt:   now,
		}
		if err := s.Earnings.Append(ctx, rec); err != nil {
			zap.L().Error("failed to append earning record", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}

	s.notifyCustomer(b.CustomerID, "trip_completed", map[string]string{"booking_id": b.ID})
	s.broadcast(b.ID, "trip_completed", b)
	return b, nil
}

func (s *DefaultLifecycleService) Cancel(ctx context.Context, bookingID, actorID string, role models.ActorRole, reason string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.RoleCustomer:
		if b.CustomerID != actorID {
			return nil, utils.UnauthorizedError("actor %s is not the booking customer", actorID)
		}
	case models.RoleProvider:
		if b.ProviderID == nil || *b.ProviderID != actorID {
			return nil, utils.UnauthorizedError("actor %s is not the assigned provider", actorID)
		}
	case models.RoleSystem:
	default:
		return nil, utils.UnauthorizedError("unknown actor role %q", role)
	}

	if !canTransition(b.Status, models.StatusCancelled) {
		return nil, utils.InvalidStateError("cannot cancel from %s", b.Status)
	}

	// No fee while unassigned. A customer abandoning an assigned provider
	// pays a fraction of the estimate; a provider bailing costs the
	// customer nothing.
	var fee float64
	if b.Status == models.StatusAssigned && role == models.RoleCustomer {
		fee = roundMoney(b.EstimatedPrice * config.AppConfig.CustomerCancelFeeRate)
	}

	now := time.Now()
	won, err := s.Bookings.UpdateStatusFromAny(ctx, bookingID,
		[]models.BookingStatus{models.StatusPending, models.StatusConfirmed, models.StatusAssigned},
		models.StatusCancelled,
		repository.StatusPatch{
			CancelledAt:        &now,
			CancelledBy:        role,
			CancellationReason: reason,
			CancellationFee:    &fee,
		},
	)
	if err != nil {
		return nil, utils.UpstreamError("cancellation write failed: %v", err)
	}
	if !won {
		return nil, utils.ConflictError("booking %s changed state concurrently", bookingID)
	}

	if b.ProviderID != nil {
		s.releaseProvider(*b.ProviderID)
		s.notifyProvider(*b.ProviderID, "booking_cancelled", map[string]string{"booking_id": b.ID})
	}

	// A cancelled shared ride leaves its group so the remaining members are
	// repriced, or the group freezes when the leader walked. Best effort;
	// the pool also rechecks leader status on every join.
	if sd := b.ServiceData.SharedRide; sd != nil && sd.GroupID != "" && s.Pool != nil {
		if err := s.Pool.RemoveMember(ctx, b.ID); err != nil {
			zap.L().Error("failed to detach cancelled booking from group",
				zap.String("booking_id", b.ID),
				zap.String("group_id", sd.GroupID),
				zap.Error(err))
		}
	}

	b.Status = models.StatusCancelled
	b.CancelledAt = &now
	b.CancelledBy = role
	b.CancellationReason = reason
	b.CancellationFee = fee

	s.broadcast(b.ID, "booking_cancelled", b)
	return b, nil
}

func (s *DefaultLifecycleService) Tracking(ctx context.Context, bookingID, actorID string, role models.ActorRole) ([]models.TrackingEvent, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	authorized := role == models.RoleSystem ||
		(role == models.RoleCustomer && b.CustomerID == actorID) ||
		(role == models.RoleProvider && b.ProviderID != nil && *b.ProviderID == actorID)
	if !authorized {
		return nil, utils.UnauthorizedError("actor %s may not view tracking for booking %s", actorID, bookingID)
	}
	return s.TrackRepo.ListByBooking(ctx, bookingID, 0)
}

// authorizedProviderBooking loads the booking and verifies the acting
// provider is its assignee.
func (s *DefaultLifecycleService) authorizedProviderBooking(ctx context.Context, bookingID, providerID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ProviderID == nil || *b.ProviderID != providerID {
		return nil, utils.UnauthorizedError("provider %s is not assigned to booking %s", providerID, bookingID)
	}
	return b, nil
}

// releaseProvider is best effort: a failed release is logged and corrected
// by the next availability sync, never propagated.
func (s *DefaultLifecycleService) releaseProvider(providerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Providers.ReleaseAvailability(ctx, providerID); err != nil {
		zap.L().Error("failed to release provider", zap.String("provider_id", providerID), zap.Error(err))
	}
}

func (s *DefaultLifecycleService) notifyCustomer(customerID, event string, payload map[string]string) {
	if s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Notifier.NotifyCustomer(ctx, customerID, event, payload); err != nil {
		zap.L().Warn("customer notification failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *DefaultLifecycleService) notifyProvider(providerID, event string, payload map[string]string) {
	if s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Notifier.NotifyProvider(ctx, providerID, event, payload); err != nil {
		zap.L().Warn("provider notification failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *DefaultLifecycleService) broadcast(bookingID, event string, payload any) {
	if s.Broadcast == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Broadcast.Publish(ctx, realtime.BookingTopic(bookingID), event, payload); err != nil {
		zap.L().Warn("broadcast failed", zap.String("event", event), zap.Error(err))
	}
}

func validateCoords(pickup, dropoff models.GeoPoint) error {
	for _, p := range []models.GeoPoint{pickup, dropoff} {
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return utils.ValidationError("coordinate out of range: %.4f,%.4f", p.Lat, p.Lng)
		}
	}
	if pickup == (models.GeoPoint{}) && dropoff == (models.GeoPoint{}) {
		return utils.ValidationError("pickup and dropoff are required")
	}
	return nil
}

// validateServiceData rejects payload variants that do not match the
// declared kind.
func validateServiceData(kind models.ServiceKind, data models.ServiceData) error {
	if data.SharedRide != nil && kind != models.KindSharedRide {
		return utils.ValidationError("shared-ride payload on %s booking", kind)
	}
	if data.Moving != nil && kind != models.KindHouseMoving {
		return utils.ValidationError("moving payload on %s booking", kind)
	}
	if data.InterRegional != nil {
		return utils.ValidationError("inter-regional data is derived, not client-supplied")
	}
	return nil
}

func roundMoney(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
