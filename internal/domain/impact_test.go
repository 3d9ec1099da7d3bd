package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAutoApproves(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		confidence float64
		severity   Severity
		want       bool
	}{
		{"above threshold", 0.81, Sev3, true},
		{"exactly at threshold", 0.8, Sev3, false},
		{"sev1 always", 0.1, Sev1, true},
		{"low confidence sev2", 0.5, Sev2, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			i := Impact{Confidence: tc.confidence, Severity: tc.severity}
			if got := i.AutoApproves(); got != tc.want {
				t.Fatalf("AutoApproves() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestImpactDecisionIsTerminal(t *testing.T) {
	t.Parallel()

	now := time.Now()
	i := Impact{Status: ImpactPending}

	if err := i.Approve("reviewer", now); err != nil {
		t.Fatalf("approve pending: %v", err)
	}
	if i.Status != ImpactApproved || i.DecidedBy != "reviewer" || !i.DecidedAt.Equal(now) {
		t.Fatalf("approval not recorded: %+v", i)
	}

	if err := i.Reject("reviewer", now); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if err := i.Approve("someone-else", now); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second approval must fail, got %v", err)
	}

	rejected := Impact{Status: ImpactPending}
	if err := rejected.Reject("reviewer", now); err != nil {
		t.Fatalf("reject pending: %v", err)
	}
	if err := rejected.Approve("reviewer", now); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("rejected impact must stay rejected, got %v", err)
	}
}

func TestKnownEnums(t *testing.T) {
	t.Parallel()

	if !KnownAction(ActionFaceReshoot) || KnownAction("RESHOOT_EVERYTHING") {
		t.Fatalf("action validation broken")
	}
	if !KnownSeverity(Sev2) || KnownSeverity("SEV9") {
		t.Fatalf("severity validation broken")
	}
	if !KnownChangeType(ChangeDeprecation) || KnownChangeType("rename") {
		t.Fatalf("change type validation broken")
	}
}
