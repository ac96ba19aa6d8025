package access

import (
	"context"

	"github.com/google/uuid"
)

// LogRepository is append-only by design: no update or delete.
type LogRepository interface {
	Create(ctx context.Context, e *AccessLogEntry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AccessLogEntry, int, error)
}
