package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-booking-assistant/internal/delivery/dto"
	"ai-booking-assistant/internal/delivery/http/middleware"
	"ai-booking-assistant/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAppointmentFixture() (*mockAppointmentRepository, *mockAuditService, AppointmentUsecase) {
	repo := new(mockAppointmentRepository)
	audit := new(mockAuditService)
	return repo, audit, NewAppointmentUsecase(quietLogger(), repo, audit, fixedClock)
}

func validForm() *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		ClientName:      " Jane Smith ",
		ClientEmail:     "jane@example.com",
		AppointmentDate: "2025-06-17",
		AppointmentTime: "14:00",
		DurationMinutes: 45,
		Notes:           "  ",
	}
}

func TestCreateAppointment_Success(t *testing.T) {
	repo, audit, uc := newAppointmentFixture()
	userID := uuid.New()
	ctx := middleware.ContextWithUser(context.Background(), userID, "t")

	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *entity.Appointment) bool {
		return a.UserID == userID &&
			a.ClientName == "Jane Smith" &&
			a.AppointmentTime == "14:00:00" &&
			a.DurationMinutes == 45 &&
			a.Notes == nil &&
			a.Status == entity.AppointmentStatusScheduled
	})).Return(nil).Once()
	audit.On("LogCreate", mock.Anything, mock.Anything, entity.AuditActionAppointmentCreate, "appointment", mock.Anything, entity.AuditSourceForm, mock.Anything).
		Return(nil).Once()

	resp, err := uc.CreateAppointment(ctx, validForm())

	require.NoError(t, err)
	assert.Equal(t, "2025-06-17", resp.AppointmentDate)
	assert.Equal(t, "scheduled", resp.Status)
	repo.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestCreateAppointment_TodayIsAllowed(t *testing.T) {
	repo, audit, uc := newAppointmentFixture()
	ctx := middleware.ContextWithUser(context.Background(), uuid.New(), "t")
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	audit.On("LogCreate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req := validForm()
	req.AppointmentDate = fixedClock().Format(entity.DateLayout)

	_, err := uc.CreateAppointment(ctx, req)
	assert.NoError(t, err)
}

func TestCreateAppointment_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*dto.CreateAppointmentRequest)
		wantErr error
	}{
		{"past date", func(r *dto.CreateAppointmentRequest) { r.AppointmentDate = "2025-06-09" }, ErrAppointmentInPast},
		{"off-step duration", func(r *dto.CreateAppointmentRequest) { r.DurationMinutes = 20 }, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, uc := newAppointmentFixture()
			ctx := middleware.ContextWithUser(context.Background(), uuid.New(), "t")

			req := validForm()
			tt.mutate(req)

			_, err := uc.CreateAppointment(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateAppointment_Unauthenticated(t *testing.T) {
	_, _, uc := newAppointmentFixture()

	_, err := uc.CreateAppointment(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGetMyAppointments(t *testing.T) {
	repo, _, uc := newAppointmentFixture()
	userID := uuid.New()
	ctx := middleware.ContextWithUser(context.Background(), userID, "t")

	first := entity.Appointment{ID: uuid.New(), UserID: userID, AppointmentDate: time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), AppointmentTime: "09:00:00"}
	second := entity.Appointment{ID: uuid.New(), UserID: userID, AppointmentDate: time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), AppointmentTime: "13:30:00"}
	repo.On("FindByUserID", mock.Anything, userID).Return([]entity.Appointment{first, second}, nil)

	resp, err := uc.GetMyAppointments(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, first.ID, resp.Appointments[0].ID)
	assert.Equal(t, second.ID, resp.Appointments[1].ID)
}

func TestGetMyAppointments_RepositoryError(t *testing.T) {
	repo, _, uc := newAppointmentFixture()
	ctx := middleware.ContextWithUser(context.Background(), uuid.New(), "t")
	repo.On("FindByUserID", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := uc.GetMyAppointments(ctx)
	assert.EqualError(t, err, "db down")
}

func TestGetAppointment(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()

	t.Run("owned", func(t *testing.T) {
		repo, _, uc := newAppointmentFixture()
		repo.On("FindByID", mock.Anything, id).Return(&entity.Appointment{ID: id, UserID: owner}, nil)

		resp, err := uc.GetAppointment(middleware.ContextWithUser(context.Background(), owner, "t"), id)
		require.NoError(t, err)
		assert.Equal(t, id, resp.ID)
	})

	t.Run("someone else's", func(t *testing.T) {
		repo, _, uc := newAppointmentFixture()
		repo.On("FindByID", mock.Anything, id).Return(&entity.Appointment{ID: id, UserID: owner}, nil)

		_, err := uc.GetAppointment(middleware.ContextWithUser(context.Background(), uuid.New(), "t"), id)
		assert.ErrorIs(t, err, ErrAppointmentNotOwned)
	})

	t.Run("missing", func(t *testing.T) {
		repo, _, uc := newAppointmentFixture()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := uc.GetAppointment(middleware.ContextWithUser(context.Background(), owner, "t"), id)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}
