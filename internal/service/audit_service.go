package service

import (
	"context"

	"ai-booking-assistant/internal/domain/entity"
	"ai-booking-assistant/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type AuditService interface {
	LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, source string, newValue interface{}) error
	LogEvent(ctx context.Context, userID *uuid.UUID, action string, metadata entity.JSON) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate records the creation of an entity and where the request came from
func (s *auditService) LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, source string, newValue interface{}) error {
	return s.LogEvent(ctx, userID, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"source":    source,
		"new_value": newValue,
	})
}

// LogEvent records an action with free-form metadata
func (s *auditService) LogEvent(ctx context.Context, userID *uuid.UUID, action string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		UserID:   userID,
		Action:   action,
		Metadata: metadata,
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
