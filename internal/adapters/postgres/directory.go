package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campushq/certificate-service/internal/domain"
)

// The directory adapters read the externally-owned participant, event and
// registration tables. This service never writes them.

type ParticipantDirectory struct {
	db *gorm.DB
}

func NewParticipantDirectory(db *gorm.DB) *ParticipantDirectory {
	return &ParticipantDirectory{db: db}
}

func (d *ParticipantDirectory) GetByID(ctx context.Context, participantID uuid.UUID) (domain.Participant, error) {
	var model participantModel
	err := d.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Participant{}, domain.ErrNotFound
		}
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return toDomainParticipant(model), nil
}

type EventDirectory struct {
	db *gorm.DB
}

func NewEventDirectory(db *gorm.DB) *EventDirectory {
	return &EventDirectory{db: db}
}

func (d *EventDirectory) GetByID(ctx context.Context, eventID uuid.UUID) (domain.Event, error) {
	var model eventModel
	err := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return toDomainEvent(model), nil
}

type RegistrationDirectory struct {
	db *gorm.DB
}

func NewRegistrationDirectory(db *gorm.DB) *RegistrationDirectory {
	return &RegistrationDirectory{db: db}
}

// IsRegistered reports whether the participant holds a confirmed or attended
// registration for the event. Cancelled registrations do not count.
func (d *RegistrationDirectory) IsRegistered(ctx context.Context, participantID, eventID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&registrationModel{}).
		Where("participant_id = ? AND event_id = ? AND status IN ?", participantID, eventID, []string{"confirmed", "attended"}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return count > 0, nil
}

func (d *RegistrationDirectory) ListEventParticipants(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.WithContext(ctx).Model(&registrationModel{}).
		Where("event_id = ? AND status IN ?", eventID, []string{"confirmed", "attended"}).
		Order("participant_id ASC").
		Pluck("participant_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	return ids, nil
}
