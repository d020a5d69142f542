package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/campushq/certificate-service/internal/domain"
)

// ParticipantDirectory resolves externally-owned participant records, read-only.
// This service never writes to the participant domain.
type ParticipantDirectory interface {
	GetByID(ctx context.Context, participantID uuid.UUID) (domain.Participant, error)
}

// EventDirectory resolves externally-owned event records, read-only.
type EventDirectory interface {
	GetByID(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
}

// RegistrationDirectory answers eligibility questions asserted by the event
// domain. This core does not compute eligibility itself; it only checks that the
// caller's assertion (a registration exists) holds.
type RegistrationDirectory interface {
	IsRegistered(ctx context.Context, participantID, eventID uuid.UUID) (bool, error)
	ListEventParticipants(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
}
