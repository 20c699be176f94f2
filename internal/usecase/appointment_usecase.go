package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-booking-assistant/internal/assistant"
	"ai-booking-assistant/internal/converter"
	"ai-booking-assistant/internal/delivery/dto"
	"ai-booking-assistant/internal/delivery/http/middleware"
	"ai-booking-assistant/internal/domain/entity"
	"ai-booking-assistant/internal/domain/repository"
	"ai-booking-assistant/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Form bookings are made in slots of this many minutes.
const durationStepMinutes = 15

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentNotOwned = errors.New("appointment does not belong to you")
	ErrAppointmentInPast   = errors.New("cannot book an appointment in the past")
	ErrInvalidDuration     = errors.New("duration must be a multiple of 15 minutes")
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	auditService    service.AuditService
	now             func() time.Time
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	now func() time.Time,
) AppointmentUsecase {
	if now == nil {
		now = time.Now
	}
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		auditService:    auditService,
		now:             now,
	}
}

// CreateAppointment books a slot from the manual form
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	if req.DurationMinutes%durationStepMinutes != 0 {
		return nil, ErrInvalidDuration
	}

	date, err := time.Parse(entity.DateLayout, req.AppointmentDate)
	if err != nil {
		return nil, err
	}
	today := u.now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, ErrAppointmentInPast
	}

	appointment := &entity.Appointment{
		UserID:          userID,
		ClientName:      strings.TrimSpace(req.ClientName),
		ClientEmail:     strings.TrimSpace(req.ClientEmail),
		AppointmentDate: date,
		AppointmentTime: assistant.NormalizeClock(req.AppointmentTime),
		DurationMinutes: req.DurationMinutes,
		Status:          entity.AppointmentStatusScheduled,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		appointment.Notes = &notes
	}

	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.auditService.LogCreate(ctx, &userID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), entity.AuditSourceForm, converter.AppointmentToResponse(appointment))

	return converter.AppointmentToResponse(appointment), nil
}

// GetMyAppointments lists the caller's appointments, earliest first
func (u *appointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	appointments, err := u.appointmentRepo.FindByUserID(ctx, userID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for user %s: %+v", userID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	appointment, err := u.appointmentRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.IsOwnedBy(userID) {
		return nil, ErrAppointmentNotOwned
	}

	return converter.AppointmentToResponse(appointment), nil
}
