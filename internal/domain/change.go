package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Fingerprint returns the deterministic content hash used for dedup:
// hex SHA-256 of the raw content string.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Candidate is one raw content item produced by a source fetcher before
// deduplication. Fingerprint is the hex SHA-256 of Raw.
type Candidate struct {
	Title       string
	URL         string
	PublishedAt time.Time
	Raw         string
	Fingerprint string
}

// ChangeType enumerates the kinds of vendor change the summarizer emits.
type ChangeType string

const (
	ChangeCapability  ChangeType = "capability"
	ChangeUI          ChangeType = "ui"
	ChangePolicy      ChangeType = "policy"
	ChangePricing     ChangeType = "pricing"
	ChangeAPI         ChangeType = "api"
	ChangeDeprecation ChangeType = "deprecation"
)

// KnownChangeType reports whether the summarizer returned a valid kind.
func KnownChangeType(t ChangeType) bool {
	switch t {
	case ChangeCapability, ChangeUI, ChangePolicy, ChangePricing, ChangeAPI, ChangeDeprecation:
		return true
	}
	return false
}

// ChangeSummary is the structured bilingual output of the summarizer.
type ChangeSummary struct {
	Summary    string
	ChangeType ChangeType
	Entities   []string
	Risks      []string
	SummaryAr  string
}

// ChangeEvent is one detected, deduplicated content item from a vendor
// source. Immutable after creation.
type ChangeEvent struct {
	ID          uuid.UUID
	VendorID    uuid.UUID
	SourceID    uuid.UUID
	Title       string
	URL         string
	PublishedAt time.Time
	Raw         string
	Summary     string
	ChangeType  ChangeType
	Entities    []string
	Risks       []string
	SummaryAr   string
	CreatedAt   time.Time
}
