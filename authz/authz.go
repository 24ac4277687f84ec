// Package authz holds the static role/action policy table. Pure lookup,
// no I/O; the workflow engine consults it before touching any store.
package authz

import "github.com/opsec-k9/backend/models"

type Action string

const (
	SubmitClockIn  Action = "submitClockIn"
	ListPending    Action = "listPending"
	Approve        Action = "approve"
	Reject         Action = "reject"
	RecordTraining Action = "recordTraining"
	ListTraining   Action = "listTraining"
)

var policy = map[models.Role]map[Action]bool{
	models.RoleAdmin: {
		SubmitClockIn:  true,
		ListPending:    true,
		Approve:        true,
		Reject:         true,
		RecordTraining: true,
		ListTraining:   true,
	},
	models.RoleTrainer: {
		SubmitClockIn:  true,
		RecordTraining: true,
		ListTraining:   true,
	},
	models.RoleHandler: {
		SubmitClockIn:  true,
		RecordTraining: true,
		ListTraining:   true,
	},
}

// Can reports whether role may perform action. Unknown roles and unknown
// actions are denied.
func Can(role models.Role, action Action) bool {
	return policy[role][action]
}
