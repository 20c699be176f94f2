package repository

import (
	"context"

	"ai-booking-assistant/internal/domain/entity"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error)
	// FindByUserID returns appointments ordered by date then time, ascending.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Appointment, error)
}
