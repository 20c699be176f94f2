package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ai-booking-assistant/internal/delivery/dto"
	"ai-booking-assistant/internal/usecase"
	"ai-booking-assistant/pkg/response"
	"ai-booking-assistant/pkg/validator"
)

// IdempotencyKeyHeader lets a client make a chat request safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// AssistantHandler answers with the bare {response, booked} / {error} shape the chat UI reads.
type AssistantHandler struct {
	assistantUsecase usecase.AssistantUsecase
	validator        *validator.CustomValidator
}

func NewAssistantHandler(assistantUsecase usecase.AssistantUsecase, validator *validator.CustomValidator) *AssistantHandler {
	return &AssistantHandler{
		assistantUsecase: assistantUsecase,
		validator:        validator,
	}
}

// Chat handles one assistant turn
// @Summary Talk to the booking assistant
// @Tags Assistant
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AssistantChatRequest true "Chat Request"
// @Success 200 {object} dto.AssistantChatResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Failure 422 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /assistant/chat [post]
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req dto.AssistantChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)

	if err := h.validator.Validate(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, firstProblem(h.validator.FormatValidationErrors(err)))
		return
	}

	result, err := h.assistantUsecase.Chat(r.Context(), &req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnauthenticated):
			response.Fail(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, usecase.ErrDuplicateRequest):
			response.Fail(w, http.StatusConflict, "This request was already processed")
		case errors.Is(err, usecase.ErrInvalidBookingPayload):
			response.Fail(w, http.StatusUnprocessableEntity, "The assistant produced invalid booking details. Please try again.")
		case errors.Is(err, usecase.ErrUpstream):
			response.Fail(w, http.StatusBadGateway, "The assistant is unavailable right now. Please try again.")
		case errors.Is(err, usecase.ErrAssistantNotConfigured):
			response.Fail(w, http.StatusInternalServerError, "Assistant is not configured")
		case errors.Is(err, usecase.ErrPersistence):
			response.Fail(w, http.StatusInternalServerError, "Failed to save appointment")
		default:
			response.Fail(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	response.JSON(w, http.StatusOK, result)
}

func firstProblem(problems map[string]string) string {
	if msg, ok := problems["message"]; ok {
		return msg
	}
	for _, msg := range problems {
		return msg
	}
	return "Invalid request"
}
