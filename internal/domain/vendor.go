package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is an organization whose AI products are tracked.
type Vendor struct {
	ID          uuid.UUID
	Name        string
	Description string
	Website     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SourceType selects the fetch strategy for a source.
type SourceType string

const (
	SourceRSS  SourceType = "RSS"
	SourceHTML SourceType = "HTML"
	SourceAPI  SourceType = "API"
)

// Source is a single monitorable endpoint belonging to a vendor.
// Both IsActive and BridgeToggle must be set for the source to be polled.
type Source struct {
	ID           uuid.UUID
	VendorID     uuid.UUID
	Name         string
	URL          string
	Type         SourceType
	CSSSelector  string
	IsActive     bool
	BridgeToggle bool
	LastChecked  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Pollable reports whether the scheduled sweep may visit this source.
func (s Source) Pollable() bool {
	return s.IsActive && s.BridgeToggle
}
