package model

import "time"

// Stats are global counters shown to the operator.
type Stats struct {
	TotalUsers  int `json:"total_users"`
	ActiveUsers int `json:"active_users"`
	TotalCodes  int `json:"total_codes"`
	UsedCodes   int `json:"used_codes"`
	TotalGroups int `json:"total_groups"`
}

// UserStatus is what /status reports to a subscriber.
type UserStatus struct {
	Phone         string
	Active        bool
	ActivatedAt   *time.Time
	ExpiresAt     *time.Time
	DaysRemaining int
	GroupCount    int
}

// MaintenanceReport is the outcome of one sweep.
type MaintenanceReport struct {
	CodesPurged      int64
	UsersDeactivated int64
}
