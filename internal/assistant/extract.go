package assistant

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
)

// Outcome classifies what a model reply contained.
type Outcome string

const (
	// OutcomeConversation: no booking object, plain assistant text.
	OutcomeConversation Outcome = "conversation"
	// OutcomeMalformed: brace-delimited text that is not valid JSON.
	OutcomeMalformed Outcome = "malformed_booking_object"
	// OutcomeIncomplete: a "book" object lacking required fields.
	OutcomeIncomplete Outcome = "incomplete_booking"
	// OutcomeInvalid: a "book" object whose fields fail validation.
	OutcomeInvalid Outcome = "invalid_booking"
	// OutcomeBooking: a complete, valid booking payload.
	OutcomeBooking Outcome = "booked"
)

const actionBook = "book"

var emptyFencePattern = regexp.MustCompile("```[a-zA-Z]*\\s*```")

type span struct {
	start, end int
}

// Extraction is the result of inspecting one model reply.
type Extraction struct {
	Outcome Outcome
	// Text is the reply with any structured objects removed. It equals the
	// reply verbatim when nothing brace-delimited was found.
	Text    string
	Payload *BookingPayload
	// Problems lists field errors for OutcomeInvalid.
	Problems map[string]string
}

// Extractor finds and validates a booking object inside free text.
type Extractor struct {
	payloads *PayloadParser
}

func NewExtractor(payloads *PayloadParser) *Extractor {
	return &Extractor{payloads: payloads}
}

type envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Extract tries a strict parse at every '{'. The first object carrying the
// "book" action marker decides the booking outcome; every other object and
// every unparseable balanced span is cut out of the returned text.
func (e *Extractor) Extract(reply string) Extraction {
	objects, malformed := scanObjects(reply)
	if len(objects) == 0 && len(malformed) == 0 {
		return Extraction{Outcome: OutcomeConversation, Text: reply}
	}

	result := Extraction{
		Outcome: OutcomeConversation,
		Text:    excise(reply, append(objects, malformed...)),
	}
	if len(objects) == 0 {
		result.Outcome = OutcomeMalformed
	}

	for _, obj := range objects {
		var env envelope
		if err := json.Unmarshal([]byte(reply[obj.start:obj.end]), &env); err != nil {
			continue
		}
		if env.Action != actionBook {
			continue
		}

		payload, problems, err := e.payloads.Parse(env.Data)
		switch {
		case errors.Is(err, ErrIncompletePayload):
			result.Outcome = OutcomeIncomplete
		case err != nil:
			result.Outcome = OutcomeInvalid
			result.Problems = problems
		default:
			result.Outcome = OutcomeBooking
			result.Payload = payload
		}
		return result
	}

	return result
}

// scanObjects returns non-overlapping spans of valid JSON objects and of
// balanced but unparseable brace groups, in text order.
func scanObjects(text string) (objects, malformed []span) {
	i := 0
	for i < len(text) {
		idx := strings.IndexByte(text[i:], '{')
		if idx < 0 {
			break
		}
		start := i + idx

		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			end := start + int(dec.InputOffset())
			objects = append(objects, span{start, end})
			i = end
			continue
		}

		if end := matchingBrace(text, start); end > 0 {
			malformed = append(malformed, span{start, end})
			i = end
			continue
		}
		i = start + 1
	}
	return objects, malformed
}

// matchingBrace returns the index just past the brace closing text[start],
// skipping braces inside double-quoted strings, or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func excise(text string, spans []span) string {
	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })

	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.start])
		last = s.end
	}
	b.WriteString(text[last:])

	out := emptyFencePattern.ReplaceAllString(b.String(), "")
	return strings.TrimSpace(out)
}
