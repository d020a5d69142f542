package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/campushq/certificate-service/internal/ports"
)

// Repositories bundles every Postgres-backed port implementation over one
// shared GORM handle, so transactional composition stays inside this package.
type Repositories struct {
	Certificates  ports.CertificateRepository
	Audit         ports.AuditLog
	Outbox        ports.OutboxRepository
	Participants  ports.ParticipantDirectory
	Events        ports.EventDirectory
	Registrations ports.RegistrationDirectory
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Certificates:  NewCertificateRepository(db),
		Audit:         NewAuditLogRepository(db),
		Outbox:        NewOutboxRepository(db),
		Participants:  NewParticipantDirectory(db),
		Events:        NewEventDirectory(db),
		Registrations: NewRegistrationDirectory(db),
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
