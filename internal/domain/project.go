package domain

import "time"

// Project is a named board with its own persisted graph.
type Project struct {
	ID        string
	Title     string
	CreatedAt int64 // Unix milliseconds
}

// Created returns CreatedAt as a time.Time.
func (p Project) Created() time.Time {
	return time.UnixMilli(p.CreatedAt)
}
