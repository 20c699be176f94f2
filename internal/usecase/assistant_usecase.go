package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ai-booking-assistant/config"
	"ai-booking-assistant/internal/assistant"
	"ai-booking-assistant/internal/converter"
	"ai-booking-assistant/internal/delivery/dto"
	"ai-booking-assistant/internal/delivery/http/middleware"
	"ai-booking-assistant/internal/domain/entity"
	"ai-booking-assistant/internal/domain/repository"
	"ai-booking-assistant/internal/infrastructure/llm"
	"ai-booking-assistant/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrAssistantNotConfigured = errors.New("assistant is not configured")
	ErrUpstream               = errors.New("completion service unavailable")
	ErrInvalidBookingPayload  = errors.New("booking details are invalid")
	ErrPersistence            = errors.New("failed to save appointment")
	ErrDuplicateRequest       = errors.New("request with this idempotency key was already processed")
)

// AssistantUsecase turns one conversational turn into either a reply or a stored appointment.
type AssistantUsecase interface {
	Chat(ctx context.Context, req *dto.AssistantChatRequest, idempotencyKey string) (*dto.AssistantChatResponse, error)
}

type assistantUsecase struct {
	log             *logrus.Logger
	config          config.LLMConfig
	client          llm.Client
	extractor       *assistant.Extractor
	appointmentRepo repository.AppointmentRepository
	auditService    service.AuditService
	idempotency     service.IdempotencyStore
	now             func() time.Time
}

func NewAssistantUsecase(
	log *logrus.Logger,
	cfg config.LLMConfig,
	client llm.Client,
	extractor *assistant.Extractor,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	idempotency service.IdempotencyStore,
	now func() time.Time,
) AssistantUsecase {
	if now == nil {
		now = time.Now
	}
	return &assistantUsecase{
		log:             log,
		config:          cfg,
		client:          client,
		extractor:       extractor,
		appointmentRepo: appointmentRepo,
		auditService:    auditService,
		idempotency:     idempotency,
		now:             now,
	}
}

// Chat sends the conversation to the completion service and books an
// appointment when the reply carries a complete "book" object. Without an
// idempotency key two identical calls can create two appointments.
func (u *assistantUsecase) Chat(ctx context.Context, req *dto.AssistantChatRequest, idempotencyKey string) (*dto.AssistantChatResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	if u.config.APIKey == "" {
		u.log.Warn("Completion API key is not configured")
		return nil, ErrAssistantNotConfigured
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		reserved, err := u.idempotency.Reserve(ctx, userID, idempotencyKey)
		if err != nil {
			u.log.Warnf("Failed to reserve idempotency key: %+v", err)
			return nil, err
		}
		if !reserved {
			return nil, ErrDuplicateRequest
		}
	}

	resp, err := u.chat(ctx, userID, req)
	if err != nil && idempotencyKey != "" {
		// Let the caller retry a request that produced nothing.
		if releaseErr := u.idempotency.Release(context.WithoutCancel(ctx), userID, idempotencyKey); releaseErr != nil {
			u.log.Warnf("Failed to release idempotency key: %+v", releaseErr)
		}
	}
	return resp, err
}

func (u *assistantUsecase) chat(ctx context.Context, userID uuid.UUID, req *dto.AssistantChatRequest) (*dto.AssistantChatResponse, error) {
	completion, err := u.complete(ctx, req)
	if err != nil {
		u.log.Warnf("Failed to get completion: %+v", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	extraction := u.extractor.Extract(completion.Content)

	entry := u.log.WithFields(logrus.Fields{
		"user_id":      userID.String(),
		"outcome":      string(extraction.Outcome),
		"model":        completion.Model,
		"total_tokens": completion.TotalTokens,
	})

	switch extraction.Outcome {
	case assistant.OutcomeMalformed:
		entry.Warn("Model reply contained an unparseable object")
		return &dto.AssistantChatResponse{Response: extraction.Text}, nil

	case assistant.OutcomeInvalid:
		entry.WithField("problems", extraction.Problems).Warn("Model produced an invalid booking")
		return nil, fmt.Errorf("%w: %s", ErrInvalidBookingPayload, describeProblems(extraction.Problems))

	case assistant.OutcomeBooking:
		appointment, err := extraction.Payload.ToAppointment(userID)
		if err != nil {
			entry.Warnf("Failed to build appointment: %+v", err)
			return nil, fmt.Errorf("%w: %v", ErrInvalidBookingPayload, err)
		}

		if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
			entry.Warnf("Failed to create appointment: %+v", err)
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		u.auditService.LogCreate(ctx, &userID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), entity.AuditSourceAssistant, converter.AppointmentToResponse(appointment))

		entry.WithField("appointment_id", appointment.ID.String()).Info("Appointment booked")
		return &dto.AssistantChatResponse{Response: assistant.ConfirmationMessage, Booked: true}, nil

	default:
		entry.Info("Assistant replied")
		return &dto.AssistantChatResponse{Response: extraction.Text}, nil
	}
}

func (u *assistantUsecase) complete(ctx context.Context, req *dto.AssistantChatRequest) (llm.Completion, error) {
	messages := make([]llm.Message, 0, len(req.ConversationHistory)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: assistant.SystemPrompt(u.now())})
	for _, turn := range req.ConversationHistory {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Message})

	if u.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.config.Timeout)
		defer cancel()
	}

	return u.client.Complete(ctx, messages)
}

func describeProblems(problems map[string]string) string {
	if len(problems) == 0 {
		return "unknown problem"
	}
	parts := make([]string, 0, len(problems))
	for field, msg := range problems {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
