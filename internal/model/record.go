package model

import "time"

// Record is the domain model for a to-do item or a roast-log entry.
// The JSON keys match the persisted browser format, so old data loads as is.
type Record struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	Done      bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"` // unix millis
}

// Created returns the creation time in local time.
func (r Record) Created() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Draft is a record that has not been assigned an id or timestamp yet.
type Draft struct {
	Title string
	Notes string
	Done  bool
}
