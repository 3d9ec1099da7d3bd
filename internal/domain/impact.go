package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PredictedAction is the category of remediation work an impact implies.
type PredictedAction string

const (
	ActionFaceReshoot PredictedAction = "FACE_RESHOOT"
	ActionScreenRedo  PredictedAction = "SCREEN_REDO"
	ActionSlidesEdit  PredictedAction = "SLIDES_EDIT"
	ActionPolicyNote  PredictedAction = "POLICY_NOTE"
)

// KnownAction reports whether the classifier returned a valid action.
func KnownAction(a PredictedAction) bool {
	switch a {
	case ActionFaceReshoot, ActionScreenRedo, ActionSlidesEdit, ActionPolicyNote:
		return true
	}
	return false
}

// Severity is the urgency tier driving the SLA response-time budget.
type Severity string

const (
	Sev1 Severity = "SEV1"
	Sev2 Severity = "SEV2"
	Sev3 Severity = "SEV3"
)

// KnownSeverity reports whether the classifier returned a valid tier.
func KnownSeverity(s Severity) bool {
	return s == Sev1 || s == Sev2 || s == Sev3
}

// ImpactStatus is the review state of an impact prediction.
type ImpactStatus string

const (
	ImpactPending  ImpactStatus = "PENDING"
	ImpactApproved ImpactStatus = "APPROVED"
	ImpactRejected ImpactStatus = "REJECTED"
)

// ErrAlreadyDecided is returned when approving or rejecting an impact
// that already left PENDING. APPROVED and REJECTED are terminal.
var ErrAlreadyDecided = errors.New("impact already decided")

// autoApproveConfidence is the exclusive threshold above which an impact
// bypasses human review.
const autoApproveConfidence = 0.8

// ImpactPrediction is one classifier output row before persistence.
type ImpactPrediction struct {
	AssetID    uuid.UUID
	Action     PredictedAction
	Severity   Severity
	Confidence float64
	Reasons    []string
}

// Impact is a predicted effect of one change event on one course asset.
type Impact struct {
	ID            uuid.UUID
	ChangeEventID uuid.UUID
	AssetID       uuid.UUID
	Action        PredictedAction
	Severity      Severity
	Confidence    float64
	Reasons       []string
	Status        ImpactStatus
	DecidedBy     string
	DecidedAt     time.Time
	CreatedAt     time.Time
}

// AutoApproves reports whether the impact qualifies for immediate
// approval without human review: confidence above 0.8 or SEV1.
func (i Impact) AutoApproves() bool {
	return i.Confidence > autoApproveConfidence || i.Severity == Sev1
}

// Approve moves the impact from PENDING to the terminal APPROVED state,
// recording who decided and when.
func (i *Impact) Approve(by string, at time.Time) error {
	if i.Status != ImpactPending {
		return fmt.Errorf("approve impact %s in status %s: %w", i.ID, i.Status, ErrAlreadyDecided)
	}
	i.Status = ImpactApproved
	i.DecidedBy = by
	i.DecidedAt = at
	return nil
}

// Reject moves the impact from PENDING to the terminal REJECTED state.
func (i *Impact) Reject(by string, at time.Time) error {
	if i.Status != ImpactPending {
		return fmt.Errorf("reject impact %s in status %s: %w", i.ID, i.Status, ErrAlreadyDecided)
	}
	i.Status = ImpactRejected
	i.DecidedBy = by
	i.DecidedAt = at
	return nil
}
