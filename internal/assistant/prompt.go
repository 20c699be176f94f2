package assistant

import (
	"fmt"
	"time"

	"ai-booking-assistant/internal/domain/entity"
)

// DefaultDurationMinutes is used when neither the user nor the model names a duration.
const DefaultDurationMinutes = 30

// ConfirmationMessage replaces the model reply once an appointment is stored.
const ConfirmationMessage = "Great! I've successfully booked your appointment. You'll be redirected to your dashboard shortly."

const systemPromptTemplate = `You are a helpful AI booking assistant. Your job is to help users schedule appointments by extracting the relevant details from their natural language requests.

Collect the following:
- Client name
- Client email (ask for it if it was not given)
- Date (resolve relative dates such as "next Tuesday" against today's date into YYYY-MM-DD)
- Time (24-hour format)
- Duration in minutes (use %d if not specified)

When any of client name, email, date or time is missing, ask a short, friendly clarifying question and do not output JSON.

Once every required detail is known, reply with exactly one JSON object in this format:
{
  "action": "book",
  "data": {
    "client_name": "Name",
    "client_email": "email@example.com",
    "appointment_date": "YYYY-MM-DD",
    "appointment_time": "HH:MM:00",
    "duration_minutes": %d,
    "notes": "any additional notes"
  }
}

Today's date is %s.`

// SystemPrompt renders the fixed instruction for the given day (taken in UTC).
func SystemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, DefaultDurationMinutes, DefaultDurationMinutes, now.UTC().Format(entity.DateLayout))
}
