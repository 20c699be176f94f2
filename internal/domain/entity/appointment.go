package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// DateLayout is the appointment_date wire and storage format
const DateLayout = "2006-01-02"

// Appointment is a booked meeting owned by the user that created it
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	ClientName      string            `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientEmail     string            `gorm:"type:varchar(255);not null" json:"client_email"`
	AppointmentDate time.Time         `gorm:"type:date;not null;index:idx_appointments_slot,priority:1" json:"appointment_date"`
	AppointmentTime string            `gorm:"type:time;not null;index:idx_appointments_slot,priority:2" json:"appointment_time"`
	DurationMinutes int               `gorm:"not null;default:30" json:"duration_minutes"`
	Notes           *string           `gorm:"type:text" json:"notes,omitempty"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsOwnedBy reports whether the appointment belongs to the given user
func (a *Appointment) IsOwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}
