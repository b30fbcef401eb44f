package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/tenant"
)

// DefaultSlotHold is how long a customer has to pick a drop-in slot
const DefaultSlotHold = 48 * time.Hour

// exportLimit caps a single staff export
const exportLimit = 5000

// BookingService handles booking use cases
type BookingService struct {
	bookings     domain.BookingRepository
	catalogue    domain.CatalogueRepository
	pricing      *PricingService
	availability *AvailabilityService
	holds        SlotHoldScheduler
	workbook     Workbook
	holdFor      time.Duration
	logger       *logging.Logger
	metrics      *metrics.Metrics
	now          Clock
}

// BookingServiceOption configures optional BookingService collaborators
type BookingServiceOption func(*BookingService)

// WithSlotHolds starts a hold timer whenever a booking waits for a slot
func WithSlotHolds(holds SlotHoldScheduler, holdFor time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.holds = holds
		if holdFor > 0 {
			s.holdFor = holdFor
		}
	}
}

// WithExportWorkbook enables the staff export
func WithExportWorkbook(workbook Workbook) BookingServiceOption {
	return func(s *BookingService) { s.workbook = workbook }
}

// WithBookingClock overrides the clock
func WithBookingClock(now Clock) BookingServiceOption {
	return func(s *BookingService) { s.now = now }
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookings domain.BookingRepository,
	catalogue domain.CatalogueRepository,
	pricing *PricingService,
	availability *AvailabilityService,
	logger *logging.Logger,
	m *metrics.Metrics,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		bookings:     bookings,
		catalogue:    catalogue,
		pricing:      pricing,
		availability: availability,
		holdFor:      DefaultSlotHold,
		logger:       logger.WithComponent("booking"),
		metrics:      m,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookingPage is one page of the staff list
type BookingPage struct {
	Bookings []*domain.Booking
	Total    int64
	Page     int64
	PageSize int64
}

// Draft validates a pallet configuration against the warehouse's goods types
func (s *BookingService) Draft(ctx context.Context, cmd DraftCommand) (*domain.PalletBookingDetails, error) {
	warehouse, err := s.catalogue.GetWarehouse(ctx, cmd.WarehouseID)
	if err != nil {
		return nil, toAppError(err)
	}
	details, err := domain.BuildDraft(cmd.ToDraftInput(), warehouse.GoodsTypeOptions)
	if err != nil {
		return nil, toAppError(err)
	}
	return details, nil
}

// CreateBooking prices and stores a new booking for the calling customer
func (s *BookingService) CreateBooking(ctx context.Context, principal *tenant.Context, cmd CreateBookingCommand) (*domain.Booking, error) {
	if principal == nil || principal.IsAnonymous() {
		return nil, errors.ErrUnauthorized("")
	}

	start, err := parseTimestamp("startDate", cmd.StartDate)
	if err != nil {
		return nil, toAppError(err)
	}
	end, err := parseTimestamp("endDate", cmd.EndDate)
	if err != nil {
		return nil, toAppError(err)
	}

	warehouse, err := s.catalogue.GetWarehouse(ctx, cmd.WarehouseID)
	if err != nil {
		return nil, toAppError(err)
	}

	bookingType := domain.BookingType(cmd.Type)
	quantity := cmd.AreaSqFt
	var details *domain.PalletBookingDetails
	if bookingType == domain.BookingTypePallet {
		quantity = cmd.PalletCount
		if cmd.PalletDetails != nil {
			details, err = domain.BuildDraft(cmd.PalletDetails.ToDraftInput(), warehouse.GoodsTypeOptions)
			if err != nil {
				return nil, toAppError(err)
			}
			if quantity == 0 {
				quantity = details.TotalPallets
			} else if quantity != details.TotalPallets {
				return nil, toAppError(&domain.InputError{
					Field:   "palletCount",
					Message: fmt.Sprintf("%d pallets booked but the configuration holds %d", quantity, details.TotalPallets),
				})
			}
		}
	}

	req := domain.PriceRequest{
		WarehouseID: warehouse.ID,
		Type:        bookingType,
		Quantity:    quantity,
		StartDate:   start,
		EndDate:     end,
	}
	if details != nil {
		req.PalletDetails = details.PriceDetails()
	}
	breakdown, err := s.pricing.Calculate(ctx, req)
	if err != nil {
		return nil, err
	}

	metadata := domain.BookingMetadata{Notes: cmd.Notes}
	if cmd.RequestedDropInTime != "" {
		dropIn, err := parseTimestamp("requestedDropInTime", cmd.RequestedDropInTime)
		if err != nil {
			return nil, toAppError(err)
		}
		metadata.RequestedDropInTime = &dropIn
	}

	flow := domain.BookingFlow(cmd.Flow)
	if flow == "" {
		flow = domain.FlowMarketplace
	}
	email := cmd.CustomerEmail
	if email == "" {
		email = principal.Email
	}

	params := domain.NewBookingParams{
		Flow:          flow,
		Type:          bookingType,
		CustomerID:    principal.UserID,
		CustomerName:  cmd.CustomerName,
		CustomerEmail: email,
		CompanyID:     warehouse.CompanyID,
		WarehouseID:   warehouse.ID,
		StartDate:     start,
		EndDate:       end,
		TotalAmount:   breakdown.Total.InexactFloat64(),
		PalletDetails: details,
		Metadata:      metadata,
	}
	if bookingType == domain.BookingTypePallet {
		params.PalletCount = quantity
	} else {
		params.AreaSqFt = quantity
	}

	booking, err := domain.NewBooking(params, s.now())
	if err != nil {
		return nil, toAppError(err)
	}

	if err := s.bookings.Save(ctx, booking); err != nil {
		s.logger.WithBooking(booking.ID, booking.WarehouseID).WithError(err).Error("Failed to save booking")
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.metrics.RecordBookingCreated(string(booking.Flow), string(booking.Type))
	s.logger.Event(ctx, domain.EventBookingCreated, map[string]any{
		"bookingId":   booking.ID,
		"warehouseId": booking.WarehouseID,
		"status":      string(booking.Status),
		"totalAmount": booking.TotalAmount,
	})

	return booking, nil
}

// GetBooking returns a booking the caller may see
func (s *BookingService) GetBooking(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(principal, booking, accessParty); err != nil {
		return nil, err
	}
	return booking, nil
}

// Approve confirms a legacy booking
func (s *BookingService) Approve(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	return s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.Approve(actor, now)
	})
}

// SetAwaitingTimeSlot opens slot selection once the requested drop-in date
// has an open slot, then starts the hold timer
func (s *BookingService) SetAwaitingTimeSlot(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		if !b.Status.CanPerform(domain.ActionSetAwaitingTimeSlot) {
			return &domain.TransitionError{From: b.Status, Action: string(domain.ActionSetAwaitingTimeSlot)}
		}
		day, err := s.availability.IsAvailable(ctx, b.WarehouseID, b.DropInDate(), b.Type)
		if err != nil {
			return err
		}
		return b.SetAwaitingTimeSlot(day, actor, now)
	})
	if err != nil {
		return nil, err
	}

	s.startHold(ctx, booking.ID)
	return booking, nil
}

// ProposeTime records a staff counter-proposal
func (s *BookingService) ProposeTime(ctx context.Context, principal *tenant.Context, bookingID string, cmd ProposeTimeCommand) (*domain.Booking, error) {
	date, err := domain.ParseDate(cmd.ProposedStartDate)
	if err != nil {
		return nil, toAppError(&domain.InputError{Field: "proposedStartDate", Message: err.Error()})
	}
	return s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.ProposeTime(date, cmd.ProposedStartTime, actor, now)
	})
}

// ConfirmTimeSlot records the customer's pick after re-checking the slot
func (s *BookingService) ConfirmTimeSlot(ctx context.Context, principal *tenant.Context, bookingID string, cmd ConfirmTimeSlotCommand) (*domain.Booking, error) {
	date, err := domain.ParseDate(cmd.Date)
	if err != nil {
		return nil, toAppError(&domain.InputError{Field: "date", Message: err.Error()})
	}
	slotTime, err := domain.ParseSlotTime(cmd.Time)
	if err != nil {
		return nil, toAppError(err)
	}

	booking, err := s.apply(ctx, principal, bookingID, accessCustomer, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		if !b.Status.CanPerform(domain.ActionConfirmTimeSlot) {
			return &domain.TransitionError{From: b.Status, Action: string(domain.ActionConfirmTimeSlot)}
		}
		warehouse, err := s.catalogue.GetWarehouse(ctx, b.WarehouseID)
		if err != nil {
			return err
		}
		day := s.availability.evaluate(ctx, warehouse, date, b.Type)
		if !day.SlotOpen(slotTime) {
			return fmt.Errorf("%w: %s at %s", domain.ErrSlotUnavailable, date.Format(domain.DateLayout), slotTime)
		}
		return b.ConfirmTimeSlot(date, slotTime, warehouse.RequiresPrepayment, actor, now)
	})
	if err != nil {
		return nil, err
	}

	if s.holds != nil {
		if err := s.holds.SlotConfirmed(ctx, booking.ID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to end slot hold", "bookingId", booking.ID)
		}
	}
	return booking, nil
}

// MarkPaid confirms a prepaid booking
func (s *BookingService) MarkPaid(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	return s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.MarkPaid(actor, now)
	})
}

// CheckIn marks goods as received
func (s *BookingService) CheckIn(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	return s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.CheckIn(actor, now)
	})
}

// CheckOut marks goods as collected
func (s *BookingService) CheckOut(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	return s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.CheckOut(actor, now)
	})
}

// RequestCancellation asks staff to cancel. Either party may ask.
func (s *BookingService) RequestCancellation(ctx context.Context, principal *tenant.Context, bookingID string, cmd CancellationCommand) (*domain.Booking, error) {
	return s.apply(ctx, principal, bookingID, accessParty, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.RequestCancellation(cmd.Reason, actor, now)
	})
}

// ApproveCancellation cancels the booking and releases any slot hold
func (s *BookingService) ApproveCancellation(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.ApproveCancellation(actor, now)
	})
	if err != nil {
		return nil, err
	}
	s.release(ctx, booking.ID)
	return booking, nil
}

// RejectCancellation restores the status held before the request. A booking
// back in slot selection gets a new hold timer.
func (s *BookingService) RejectCancellation(ctx context.Context, principal *tenant.Context, bookingID string, cmd CancellationCommand) (*domain.Booking, error) {
	booking, err := s.apply(ctx, principal, bookingID, accessStaff, func(b *domain.Booking, actor domain.Actor, now time.Time) error {
		return b.RejectCancellation(cmd.Reason, actor, now)
	})
	if err != nil {
		return nil, err
	}
	if booking.Status == domain.StatusAwaitingTimeSlot {
		s.startHold(ctx, booking.ID)
	}
	return booking, nil
}

// ExpireSlotHold requests cancellation of a booking whose customer never
// picked a slot. Bookings that moved on are left alone.
func (s *BookingService) ExpireSlotHold(ctx context.Context, bookingID string) (bool, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking.Status != domain.StatusAwaitingTimeSlot {
		return false, nil
	}

	from := booking.Status
	if err := booking.RequestCancellation("slot hold expired", domain.SystemActor("slot-hold"), s.now()); err != nil {
		return false, toAppError(err)
	}
	if err := s.bookings.Save(ctx, booking); err != nil {
		return false, s.saveError(booking, err)
	}
	s.transitioned(ctx, booking, from, "slot-hold")
	return true, nil
}

// ListBookings returns the staff list, scoped to the caller's company.
// Customers only ever see their own bookings.
func (s *BookingService) ListBookings(ctx context.Context, principal *tenant.Context, query ListBookingsQuery) (*BookingPage, error) {
	filter, err := s.scopedFilter(principal, query)
	if err != nil {
		return nil, err
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return &BookingPage{Bookings: bookings, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// ExportBookings writes the filtered staff list as a workbook
func (s *BookingService) ExportBookings(ctx context.Context, principal *tenant.Context, query ListBookingsQuery, w io.Writer) error {
	if s.workbook == nil {
		return errors.ErrServiceUnavailable("booking export")
	}
	if principal == nil || !principal.IsStaff() {
		return toAppError(denied("only warehouse staff may export bookings"))
	}

	filter, err := s.scopedFilter(principal, query)
	if err != nil {
		return err
	}
	filter.Page = 1
	filter.PageSize = exportLimit

	bookings, _, err := s.bookings.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}
	if err := s.workbook.WriteBookings(w, bookings); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	s.logger.Audit(ctx, "bookings.export", "company", principal.CompanyID, principal.UserID, map[string]any{
		"rows": len(bookings),
	})
	return nil
}

func (s *BookingService) scopedFilter(principal *tenant.Context, query ListBookingsQuery) (domain.BookingFilter, error) {
	if principal == nil || principal.IsAnonymous() {
		return domain.BookingFilter{}, errors.ErrUnauthorized("")
	}
	filter, err := query.ToFilter()
	if err != nil {
		return domain.BookingFilter{}, toAppError(err)
	}
	if principal.IsStaff() {
		if principal.CompanyID == "" {
			return domain.BookingFilter{}, toAppError(denied("staff account has no company"))
		}
		filter.CompanyID = principal.CompanyID
	} else {
		filter.CustomerID = principal.UserID
	}
	return filter, nil
}

type access int

const (
	// accessCustomer lets only the booking's customer act
	accessCustomer access = iota
	// accessStaff lets staff and owners of the warehouse's company act
	accessStaff
	// accessParty lets either side act
	accessParty
)

func authorize(principal *tenant.Context, booking *domain.Booking, rule access) error {
	if principal == nil || principal.IsAnonymous() {
		return errors.ErrUnauthorized("")
	}

	isCustomer := !principal.IsStaff() && principal.UserID == booking.CustomerID
	isStaff := principal.IsStaff() && principal.ValidateOwnership(booking.CompanyID) == nil

	var ok bool
	switch rule {
	case accessCustomer:
		ok = isCustomer
	case accessStaff:
		ok = isStaff
	case accessParty:
		ok = isCustomer || isStaff
	}
	if !ok {
		return toAppError(denied("booking %s is not accessible to %s", booking.ID, principal.UserID))
	}
	return nil
}

func actorFor(principal *tenant.Context) domain.Actor {
	role := domain.ActorCustomer
	switch principal.Role {
	case tenant.RoleStaff:
		role = domain.ActorStaff
	case tenant.RoleOwner:
		role = domain.ActorOwner
	}
	return domain.Actor{ID: principal.UserID, Role: role}
}

// apply loads a booking, checks access, runs one transition and saves it
func (s *BookingService) apply(
	ctx context.Context,
	principal *tenant.Context,
	bookingID string,
	rule access,
	change func(b *domain.Booking, actor domain.Actor, now time.Time) error,
) (*domain.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(principal, booking, rule); err != nil {
		return nil, err
	}

	from := booking.Status
	if err := change(booking, actorFor(principal), s.now()); err != nil {
		if stderrors.Is(err, domain.ErrSlotUnavailable) {
			s.logger.WithContext(ctx).WithBooking(booking.ID, booking.WarehouseID).Info("Slot unavailable", "error", err.Error())
		}
		return nil, toAppError(err)
	}

	if err := s.bookings.Save(ctx, booking); err != nil {
		return nil, s.saveError(booking, err)
	}
	s.transitioned(ctx, booking, from, principal.UserID)
	return booking, nil
}

func (s *BookingService) transitioned(ctx context.Context, booking *domain.Booking, from domain.BookingStatus, actorID string) {
	if from == booking.Status {
		return
	}
	s.metrics.RecordBookingTransition(string(from), string(booking.Status))
	s.logger.StatusTransition(ctx, booking.ID, string(from), string(booking.Status), actorID)
}

func (s *BookingService) saveError(booking *domain.Booking, err error) error {
	if stderrors.Is(err, domain.ErrVersionConflict) {
		return toAppError(err)
	}
	s.logger.WithBooking(booking.ID, booking.WarehouseID).WithError(err).Error("Failed to save booking")
	return fmt.Errorf("failed to save booking: %w", err)
}

func (s *BookingService) load(ctx context.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if stderrors.Is(err, domain.ErrBookingNotFound) {
			return nil, toAppError(err)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	if booking == nil {
		return nil, errors.ErrNotFoundWithID("booking", bookingID)
	}
	return booking, nil
}

// startHold keeps a running hold and starts a new one otherwise
func (s *BookingService) startHold(ctx context.Context, bookingID string) {
	if s.holds == nil {
		return
	}
	if err := s.holds.StartHold(ctx, bookingID, s.holdFor); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to start slot hold", "bookingId", bookingID)
	}
}

func (s *BookingService) release(ctx context.Context, bookingID string) {
	if s.holds == nil {
		return
	}
	if err := s.holds.Release(ctx, bookingID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to release slot hold", "bookingId", bookingID)
	}
}
