package models

import (
	"time"
)

// Message is a single contribution to a hive. Messages are immutable once
// created and may only be created while the owning hive is open.
type Message struct {
	ID              string    `json:"id"`
	HiveID          string    `json:"hive_id"`
	ContributorName string    `json:"contributor_name"`
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
}

// HarvestSubscriber is an opted-in email address to notify when the hive
// is harvested. Registration is open to any contributor and independent of
// authorization.
type HarvestSubscriber struct {
	ID        string    `json:"id"`
	HiveID    string    `json:"hive_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
