package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-booking-assistant/config"
	"ai-booking-assistant/internal/delivery/dto"
	"ai-booking-assistant/internal/delivery/http/handler"
	"ai-booking-assistant/internal/delivery/http/middleware"
	"ai-booking-assistant/internal/usecase"
	"ai-booking-assistant/pkg/jwt"
	"ai-booking-assistant/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAssistantUsecase struct {
	mock.Mock
}

func (m *mockAssistantUsecase) Chat(ctx context.Context, req *dto.AssistantChatRequest, idempotencyKey string) (*dto.AssistantChatResponse, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AssistantChatResponse), args.Error(1)
}

type mockAppointmentUsecase struct {
	mock.Mock
}

func (m *mockAppointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AppointmentResponse), args.Error(1)
}

func (m *mockAppointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AppointmentListResponse), args.Error(1)
}

func (m *mockAppointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AppointmentResponse), args.Error(1)
}

type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *mockAuthUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenResponse), args.Error(1)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, userID uuid.UUID, accessTokenID, refreshToken string) error {
	return m.Called(ctx, userID, accessTokenID, refreshToken).Error(0)
}

func (m *mockAuthUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenResponse), args.Error(1)
}

func (m *mockAuthUsecase) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

// liveTokens treats every token as not revoked.
type liveTokens struct{}

func (liveTokens) Store(context.Context, jwt.TokenType, uuid.UUID, string, time.Duration) error {
	return nil
}

func (liveTokens) Exists(context.Context, jwt.TokenType, uuid.UUID, string) (bool, error) {
	return true, nil
}

func (liveTokens) Revoke(context.Context, jwt.TokenType, uuid.UUID, ...string) error {
	return nil
}

func (liveTokens) Consume(context.Context, jwt.TokenType, uuid.UUID, string) (bool, error) {
	return true, nil
}

type testServer struct {
	handler      http.Handler
	assistant    *mockAssistantUsecase
	appointments *mockAppointmentUsecase
	auth         *mockAuthUsecase
	userID       uuid.UUID
	token        string
}

func newTestServer(t *testing.T, ratePerMinute, burst int) *testServer {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "router-secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour})
	v := validator.NewValidator()

	s := &testServer{
		assistant:    new(mockAssistantUsecase),
		appointments: new(mockAppointmentUsecase),
		auth:         new(mockAuthUsecase),
		userID:       uuid.New(),
	}

	token, _, err := jwtService.GenerateAccessToken(s.userID, "owner@example.com")
	require.NoError(t, err)
	s.token = token

	router := NewRouter(
		handler.NewAuthHandler(s.auth, v),
		handler.NewAppointmentHandler(s.appointments, v),
		handler.NewAssistantHandler(s.assistant, v),
		middleware.NewAuthMiddleware(jwtService, liveTokens{}, log),
		middleware.NewCORSMiddleware("*"),
		middleware.NewRateLimitMiddleware(ratePerMinute, burst, log),
	)
	s.handler = router.Setup()
	return s
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 20, 5)

	rec := s.do(http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, 20, 5)

	rec := s.do(http.MethodOptions, "/api/v1/assistant/chat", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestChat_RequiresBearer(t *testing.T) {
	s := newTestServer(t, 20, 5)

	rec := s.do(http.MethodPost, "/api/v1/assistant/chat", `{"message":"hi"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header is required", decodeBody(t, rec)["error"])
	s.assistant.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat_Success(t *testing.T) {
	s := newTestServer(t, 20, 5)
	s.assistant.On("Chat", mock.Anything, mock.MatchedBy(func(req *dto.AssistantChatRequest) bool {
		return req.Message == "Book Jane Smith" && len(req.ConversationHistory) == 1
	}), "key-1").Return(&dto.AssistantChatResponse{Response: "Done", Booked: true}, nil)

	headers := s.bearer()
	headers[handler.IdempotencyKeyHeader] = "key-1"
	rec := s.do(http.MethodPost, "/api/v1/assistant/chat",
		`{"message":"  Book Jane Smith  ","conversationHistory":[{"role":"assistant","content":"Hello!"}]}`, headers)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"Done","booked":true}`, rec.Body.String())
	s.assistant.AssertExpectations(t)
}

func TestChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"message":`},
		{"blank message", `{"message":"   "}`},
		{"unknown role", `{"message":"hi","conversationHistory":[{"role":"system","content":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 20, 5)

			rec := s.do(http.MethodPost, "/api/v1/assistant/chat", tt.body, s.bearer())

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
			s.assistant.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChat_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{usecase.ErrUnauthenticated, http.StatusUnauthorized},
		{usecase.ErrDuplicateRequest, http.StatusConflict},
		{usecase.ErrInvalidBookingPayload, http.StatusUnprocessableEntity},
		{usecase.ErrUpstream, http.StatusBadGateway},
		{usecase.ErrAssistantNotConfigured, http.StatusInternalServerError},
		{usecase.ErrPersistence, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newTestServer(t, 20, 5)
			s.assistant.On("Chat", mock.Anything, mock.Anything, "").Return(nil, tt.err)

			rec := s.do(http.MethodPost, "/api/v1/assistant/chat", `{"message":"hi"}`, s.bearer())

			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestChat_RateLimited(t *testing.T) {
	s := newTestServer(t, 1, 1)
	s.assistant.On("Chat", mock.Anything, mock.Anything, "").Return(&dto.AssistantChatResponse{Response: "hi"}, nil)

	first := s.do(http.MethodPost, "/api/v1/assistant/chat", `{"message":"hi"}`, s.bearer())
	second := s.do(http.MethodPost, "/api/v1/assistant/chat", `{"message":"hi"}`, s.bearer())

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	s.assistant.AssertNumberOfCalls(t, "Chat", 1)
}

func TestAppointments_List(t *testing.T) {
	s := newTestServer(t, 20, 5)
	s.appointments.On("GetMyAppointments", mock.Anything).
		Return(&dto.AppointmentListResponse{Appointments: []dto.AppointmentResponse{}, Total: 0}, nil)

	rec := s.do(http.MethodGet, "/api/v1/appointments", "", s.bearer())

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["total"])
}

func TestAppointments_CreateValidation(t *testing.T) {
	s := newTestServer(t, 20, 5)

	rec := s.do(http.MethodPost, "/api/v1/appointments",
		`{"client_name":"Jane","client_email":"nope","appointment_date":"2025-06-17","appointment_time":"14:00","duration_minutes":30}`, s.bearer())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Validation failed", body["message"])
	s.appointments.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestAppointments_Get(t *testing.T) {
	s := newTestServer(t, 20, 5)
	id := uuid.New()
	s.appointments.On("GetAppointment", mock.Anything, id).Return(nil, usecase.ErrAppointmentNotOwned)

	rec := s.do(http.MethodGet, "/api/v1/appointments/"+id.String(), "", s.bearer())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/appointments/not-a-uuid", "", s.bearer())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_LoginInvalidCredentials(t *testing.T) {
	s := newTestServer(t, 20, 5)
	s.auth.On("Login", mock.Anything, mock.Anything).Return(nil, usecase.ErrInvalidCredentials)

	rec := s.do(http.MethodPost, "/api/v1/auth/login", `{"email":"jane@example.com","password":"x"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestAuth_MeUsesTokenIdentity(t *testing.T) {
	s := newTestServer(t, 20, 5)
	s.auth.On("GetCurrentUser", mock.Anything, s.userID).
		Return(&dto.UserResponse{ID: s.userID, Email: "owner@example.com"}, nil)

	rec := s.do(http.MethodGet, "/api/v1/auth/me", "", s.bearer())

	assert.Equal(t, http.StatusOK, rec.Code)
	s.auth.AssertExpectations(t)
}
