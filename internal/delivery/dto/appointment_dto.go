package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAppointmentRequest struct {
	ClientName      string `json:"client_name" validate:"required,min=2,max=255"`
	ClientEmail     string `json:"client_email" validate:"required,email,max=255"`
	AppointmentDate string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointment_time" validate:"required,clock"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gte=15,lte=480"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	ClientName      string    `json:"client_name"`
	ClientEmail     string    `json:"client_email"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           *string   `json:"notes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
