package models

import "time"

type K9Status string

const (
	K9Active  K9Status = "Active"
	K9Retired K9Status = "Retired"
)

type K9 struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Breed    string   `json:"breed"`
	DOB      string   `json:"dob,omitempty"` // YYYY-MM-DD
	Sex      string   `json:"sex,omitempty"`
	CallSign string   `json:"call_sign,omitempty"`
	Status   K9Status `json:"status"`
}

type Vaccination struct {
	ID      int64     `json:"id"`
	K9ID    int64     `json:"k9_id"`
	Type    string    `json:"type"`
	Date    time.Time `json:"date"`
	Expires time.Time `json:"expires"`
	File    string    `json:"file,omitempty"`
}
