package repository

import (
	"context"

	"ai-booking-assistant/internal/domain/entity"
)

type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
}
