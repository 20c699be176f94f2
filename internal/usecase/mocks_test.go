package usecase

import (
	"context"
	"time"

	"ai-booking-assistant/internal/domain/entity"
	"ai-booking-assistant/internal/infrastructure/llm"
	"ai-booking-assistant/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCompletionClient struct {
	mock.Mock
}

func (m *mockCompletionClient) Complete(ctx context.Context, messages []llm.Message) (llm.Completion, error) {
	args := m.Called(ctx, messages)
	return args.Get(0).(llm.Completion), args.Error(1)
}

type mockAppointmentRepository struct {
	mock.Mock
}

func (m *mockAppointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *mockAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Appointment), args.Error(1)
}

func (m *mockAppointmentRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Appointment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Appointment), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type mockAuditService struct {
	mock.Mock
}

func (m *mockAuditService) LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, source string, newValue interface{}) error {
	args := m.Called(ctx, userID, action, entityName, entityID, source, newValue)
	return args.Error(0)
}

func (m *mockAuditService) LogEvent(ctx context.Context, userID *uuid.UUID, action string, metadata entity.JSON) error {
	args := m.Called(ctx, userID, action, metadata)
	return args.Error(0)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) Reserve(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	args := m.Called(ctx, userID, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, userID uuid.UUID, key string) error {
	args := m.Called(ctx, userID, key)
	return args.Error(0)
}

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Store(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenType, userID, tokenID, ttl)
	return args.Error(0)
}

func (m *mockTokenStore) Exists(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenType, userID, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTokenStore) Revoke(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenIDs ...string) error {
	args := m.Called(ctx, tokenType, userID, tokenIDs)
	return args.Error(0)
}

func (m *mockTokenStore) Consume(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenType, userID, tokenID)
	return args.Bool(0), args.Error(1)
}
