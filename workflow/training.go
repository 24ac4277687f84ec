package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/opsec-k9/backend/authz"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
)

type TrainingInput struct {
	K9ID            int64
	Discipline      string
	Area            string
	DurationMinutes int
	Notes           string
}

// TrainingLog is the sibling pipeline to attendance: append-only, no
// geofence and no approval gate.
type TrainingLog struct {
	store store.Store
	now   func() time.Time
}

func NewTrainingLog(s store.Store) *TrainingLog {
	return &TrainingLog{store: s, now: time.Now}
}

// Record appends a training session for the calling principal.
func (l *TrainingLog) Record(ctx context.Context, p models.Principal, in TrainingInput) (models.TrainingSession, error) {
	if !authz.Can(p.Role, authz.RecordTraining) {
		return models.TrainingSession{}, ErrForbidden
	}
	if in.K9ID <= 0 {
		return models.TrainingSession{}, fmt.Errorf("%w: k9_id is required", ErrInvalidInput)
	}
	if in.DurationMinutes < 0 {
		return models.TrainingSession{}, fmt.Errorf("%w: duration_minutes cannot be negative", ErrInvalidInput)
	}

	s := models.TrainingSession{
		K9ID:            in.K9ID,
		Discipline:      in.Discipline,
		Area:            in.Area,
		DurationMinutes: in.DurationMinutes,
		Notes:           in.Notes,
		SubmittedBy:     p.UserID,
		CreatedAt:       l.now().UTC(),
	}
	if err := l.store.AppendTraining(ctx, &s); err != nil {
		return models.TrainingSession{}, err
	}
	return s, nil
}

// List returns all sessions in creation order. Any authenticated role.
func (l *TrainingLog) List(ctx context.Context, p models.Principal) ([]models.TrainingSession, error) {
	if !authz.Can(p.Role, authz.ListTraining) {
		return nil, ErrForbidden
	}
	return l.store.Trainings(ctx)
}
