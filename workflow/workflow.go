// Package workflow is the attendance core: clock-in submission with a
// server-side geofence verdict, and the pending -> approved/rejected
// transition gated on the admin role.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsec-k9/backend/authz"
	"github.com/opsec-k9/backend/geo"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
)

var (
	// ErrInvalidInput covers malformed or missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller's role does not permit the
	// operation.
	ErrForbidden = errors.New("forbidden")
)

type ClockInInput struct {
	Lat     float64
	Lon     float64
	SiteID  int64
	JobCode string
	Selfie  string
}

type Engine struct {
	store store.Store
	now   func() time.Time
}

func NewEngine(s store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// SubmitClockIn resolves the site, evaluates the geofence and appends a
// pending attendance record. An out-of-fence position is stored and
// flagged, not rejected: the admin decides during review.
func (e *Engine) SubmitClockIn(ctx context.Context, p models.Principal, in ClockInInput) (models.AttendanceRecord, error) {
	if !authz.Can(p.Role, authz.SubmitClockIn) {
		return models.AttendanceRecord{}, ErrForbidden
	}
	if in.SiteID <= 0 {
		return models.AttendanceRecord{}, fmt.Errorf("%w: siteId is required", ErrInvalidInput)
	}

	site, err := e.store.Site(ctx, in.SiteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.AttendanceRecord{}, fmt.Errorf("site %d: %w", in.SiteID, store.ErrNotFound)
		}
		return models.AttendanceRecord{}, err
	}

	res, err := geo.Evaluate(in.Lat, in.Lon, site)
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	jobCode := in.JobCode
	if jobCode == "" {
		jobCode = models.DefaultJobCode
	}

	rec := models.AttendanceRecord{
		UserID:         p.UserID,
		Lat:            in.Lat,
		Lon:            in.Lon,
		SiteID:         site.ID,
		InsideGeofence: res.InsideGeofence,
		DistanceMeters: res.DistanceMeters,
		JobCode:        jobCode,
		Selfie:         in.Selfie,
		ClockIn:        e.now().UTC(),
		ApprovalState:  models.ApprovalPending,
	}
	if err := e.store.AppendTimeLog(ctx, &rec); err != nil {
		return models.AttendanceRecord{}, err
	}
	return rec, nil
}

// ListPending returns every pending record in creation order. Admin only.
func (e *Engine) ListPending(ctx context.Context, p models.Principal) ([]models.AttendanceRecord, error) {
	if !authz.Can(p.Role, authz.ListPending) {
		return nil, ErrForbidden
	}
	return e.store.TimeLogs(ctx, store.TimeLogFilter{State: models.ApprovalPending})
}

// Logs is the admin report view over the time-log scan.
func (e *Engine) Logs(ctx context.Context, p models.Principal, f store.TimeLogFilter) ([]models.AttendanceRecord, error) {
	if !authz.Can(p.Role, authz.ListPending) {
		return nil, ErrForbidden
	}
	if f.State != "" && !f.State.Valid() {
		return nil, fmt.Errorf("%w: state must be pending|approved|rejected", ErrInvalidInput)
	}
	return e.store.TimeLogs(ctx, f)
}

// Approve moves a pending record to approved. The transition is one-shot:
// retrying a record that already reached a terminal state fails with
// store.ErrInvalidState rather than silently succeeding.
func (e *Engine) Approve(ctx context.Context, p models.Principal, id int64) error {
	return e.transition(ctx, p, id, authz.Approve, models.ApprovalApproved)
}

// Reject moves a pending record to rejected.
func (e *Engine) Reject(ctx context.Context, p models.Principal, id int64) error {
	return e.transition(ctx, p, id, authz.Reject, models.ApprovalRejected)
}

func (e *Engine) transition(ctx context.Context, p models.Principal, id int64, action authz.Action, state models.ApprovalState) error {
	if !authz.Can(p.Role, action) {
		return ErrForbidden
	}
	return e.store.SetApproval(ctx, id, state)
}
