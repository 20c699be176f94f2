package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ai-booking-assistant/internal/domain/entity"
	"ai-booking-assistant/pkg/validator"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrIncompletePayload = errors.New("booking payload is missing required fields")
	ErrInvalidPayload    = errors.New("booking payload is invalid")
)

// bookingSchema pins the JSON shape of the "data" member of a book envelope.
const bookingSchema = `{
	"type": "object",
	"required": ["client_name", "client_email", "appointment_date", "appointment_time"],
	"properties": {
		"client_name":      {"type": "string"},
		"client_email":     {"type": "string"},
		"appointment_date": {"type": "string"},
		"appointment_time": {"type": "string"},
		"duration_minutes": {"type": "integer"},
		"notes":            {"type": ["string", "null"]}
	}
}`

// BookingPayload is a validated booking extracted from a model reply.
type BookingPayload struct {
	ClientName      string  `json:"client_name" validate:"required,max=255"`
	ClientEmail     string  `json:"client_email" validate:"required,email,max=255"`
	AppointmentDate string  `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string  `json:"appointment_time" validate:"required,clock"`
	DurationMinutes int     `json:"duration_minutes" validate:"gt=0,lte=1440"`
	Notes           *string `json:"notes,omitempty"`
}

type rawPayload struct {
	ClientName      string   `json:"client_name"`
	ClientEmail     string   `json:"client_email"`
	AppointmentDate string   `json:"appointment_date"`
	AppointmentTime string   `json:"appointment_time"`
	DurationMinutes *float64 `json:"duration_minutes"`
	Notes           *string  `json:"notes"`
}

// PayloadParser checks shape with JSON schema, then field formats.
type PayloadParser struct {
	schema    *gojsonschema.Schema
	validator *validator.CustomValidator
}

func NewPayloadParser(v *validator.CustomValidator) (*PayloadParser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(bookingSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile booking schema: %w", err)
	}
	return &PayloadParser{schema: schema, validator: v}, nil
}

// Parse returns ErrIncompletePayload when required fields are absent or
// blank, and ErrInvalidPayload with per-field problems for anything that is
// present but malformed.
func (p *PayloadParser) Parse(data json.RawMessage) (*BookingPayload, map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, ErrIncompletePayload
	}

	result, err := p.schema.Validate(gojsonschema.NewBytesLoader(trimmed))
	if err != nil {
		return nil, map[string]string{"data": err.Error()}, ErrInvalidPayload
	}
	if !result.Valid() {
		problems := make(map[string]string)
		incomplete := true
		for _, re := range result.Errors() {
			if re.Type() != "required" {
				incomplete = false
			}
			problems[re.Field()] = re.Description()
		}
		if incomplete {
			return nil, nil, ErrIncompletePayload
		}
		return nil, problems, ErrInvalidPayload
	}

	var raw rawPayload
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, map[string]string{"data": err.Error()}, ErrInvalidPayload
	}

	payload := &BookingPayload{
		ClientName:      strings.TrimSpace(raw.ClientName),
		ClientEmail:     strings.TrimSpace(raw.ClientEmail),
		AppointmentDate: strings.TrimSpace(raw.AppointmentDate),
		AppointmentTime: NormalizeClock(raw.AppointmentTime),
		DurationMinutes: DefaultDurationMinutes,
		Notes:           normalizeNotes(raw.Notes),
	}
	if payload.ClientName == "" || payload.ClientEmail == "" || payload.AppointmentDate == "" || payload.AppointmentTime == "" {
		return nil, nil, ErrIncompletePayload
	}
	if raw.DurationMinutes != nil {
		d := *raw.DurationMinutes
		if d != math.Trunc(d) || d > math.MaxInt32 || d < math.MinInt32 {
			return nil, map[string]string{"duration_minutes": "duration_minutes must be a whole number"}, ErrInvalidPayload
		}
		payload.DurationMinutes = int(d)
	}

	if err := p.validator.Validate(payload); err != nil {
		return nil, p.validator.FormatValidationErrors(err), ErrInvalidPayload
	}

	return payload, nil, nil
}

// NormalizeClock turns H:MM, HH:MM and H:MM:SS into HH:MM:SS; other input
// is returned trimmed.
func NormalizeClock(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 1 && value[1] == ':' && value[0] >= '0' && value[0] <= '9' {
		value = "0" + value
	}
	if len(value) == len("15:04") && strings.Count(value, ":") == 1 {
		return value + ":00"
	}
	return value
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ToAppointment builds the scheduled record to persist for the given owner.
func (p *BookingPayload) ToAppointment(userID uuid.UUID) (*entity.Appointment, error) {
	date, err := time.Parse(entity.DateLayout, p.AppointmentDate)
	if err != nil {
		return nil, err
	}
	return &entity.Appointment{
		UserID:          userID,
		ClientName:      p.ClientName,
		ClientEmail:     p.ClientEmail,
		AppointmentDate: date,
		AppointmentTime: p.AppointmentTime,
		DurationMinutes: p.DurationMinutes,
		Notes:           p.Notes,
		Status:          entity.AppointmentStatusScheduled,
	}, nil
}
