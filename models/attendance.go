package models

import "time"

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// DefaultJobCode is used when a clock-in carries no job code.
const DefaultJobCode = "Training"

// AttendanceRecord is one clock-in. The geofence verdict is fixed at
// submission time and never recomputed, even if the site's radius changes.
type AttendanceRecord struct {
	ID             int64         `json:"id"`
	UserID         string        `json:"user_id"`
	Lat            float64       `json:"lat"`
	Lon            float64       `json:"lon"`
	SiteID         int64         `json:"site_id"`
	InsideGeofence bool          `json:"inside_geofence"`
	DistanceMeters float64       `json:"distance_meters"`
	JobCode        string        `json:"job_code"`
	Selfie         string        `json:"selfie,omitempty"`
	ClockIn        time.Time     `json:"clock_in"`
	ApprovalState  ApprovalState `json:"approval_state"`
}

func (s ApprovalState) Valid() bool {
	return s == ApprovalPending || s == ApprovalApproved || s == ApprovalRejected
}

// Terminal reports whether no further approval transition is permitted.
func (s ApprovalState) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}
