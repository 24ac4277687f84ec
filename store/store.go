// Package store defines the persistence contract shared by the in-memory
// demo backend and the postgres backend. Records are append-created; the
// only mutation after creation is the attendance approval transition.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/opsec-k9/backend/models"
)

var (
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an approval transition is attempted
	// on a record that is no longer pending.
	ErrInvalidState = errors.New("record is not pending")
	// ErrEmailTaken is returned when a user email already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// TimeLogFilter narrows a time-log scan. Zero values mean "no filter".
type TimeLogFilter struct {
	UserID string
	State  models.ApprovalState
	From   *time.Time // inclusive, against clock_in
	To     *time.Time // exclusive
	Limit  int
	Offset int
}

type Store interface {
	// Attendance. AppendTimeLog assigns rec.ID; ids are unique and
	// monotonic even under concurrent submissions. SetApproval only
	// succeeds on a pending record (compare-and-set): of two concurrent
	// attempts exactly one wins, the other sees ErrInvalidState.
	AppendTimeLog(ctx context.Context, rec *models.AttendanceRecord) error
	TimeLog(ctx context.Context, id int64) (models.AttendanceRecord, error)
	TimeLogs(ctx context.Context, f TimeLogFilter) ([]models.AttendanceRecord, error)
	SetApproval(ctx context.Context, id int64, state models.ApprovalState) error

	// Training sessions, append-only, returned in creation order.
	AppendTraining(ctx context.Context, s *models.TrainingSession) error
	Trainings(ctx context.Context) ([]models.TrainingSession, error)

	// Site directory (read-only to the workflow).
	Site(ctx context.Context, id int64) (models.Site, error)
	Sites(ctx context.Context) ([]models.Site, error)

	// K9 roster and vaccination records.
	K9s(ctx context.Context) ([]models.K9, error)
	K9(ctx context.Context, id int64) (models.K9, error)
	AppendVaccination(ctx context.Context, v *models.Vaccination) error
	VaccinationsExpiringBefore(ctx context.Context, cutoff time.Time) ([]models.Vaccination, error)

	// User directory.
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByUserID(ctx context.Context, userID string) (models.User, error)
}
