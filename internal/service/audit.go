package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
)

// AuditRecorder turns domain events into audit-trail rows. It subscribes
// to every event; recording happens after the originating write committed
// and never feeds back into it.
type AuditRecorder struct {
	repo   repository.AuditRepository
	logger *logrus.Logger
}

func NewAuditRecorder(repo repository.AuditRepository, logger *logrus.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger}
}

// Register attaches the recorder to the bus.
func (a *AuditRecorder) Register(bus *events.Bus) {
	bus.Subscribe("*", a.Handle)
}

func (a *AuditRecorder) Handle(ctx context.Context, e events.Event) {
	entry := &models.AuditEntry{
		ID:        uuid.New().String(),
		Action:    e.Name,
		ActorID:   e.ActorID,
		SubjectID: e.SubjectID,
		Detail:    e.Detail,
		CreatedAt: e.At,
	}
	if err := a.repo.Record(ctx, entry); err != nil {
		a.logger.WithError(err).WithField("action", e.Name).Error("Failed to record audit entry")
	}
}
