package models

import "time"

// TriggerKind is consumed by the presentation layer
type TriggerKind string

const (
	TriggerShow         TriggerKind = "show"
	TriggerDismiss      TriggerKind = "dismiss"
	TriggerReclassified TriggerKind = "reclassified"
)

// Affordance is the UI element a show trigger targets
type Affordance string

const (
	AffordanceNone  Affordance = ""
	AffordanceToast Affordance = "toast"
	AffordanceBadge Affordance = "badge"
	AffordanceModal Affordance = "modal"
)

// Trigger is a UI instruction. It always carries the identity it was produced for
// so the presentation layer can drop triggers for a page it has already left.
type Trigger struct {
	Kind       TriggerKind       `json:"kind"`
	Affordance Affordance        `json:"affordance,omitempty"`
	Identity   PageIdentity      `json:"identity"`
	Facts      *PageFacts        `json:"facts,omitempty"`
	Matches    []ScoredCandidate `json:"matches,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewTrigger creates a trigger stamped with the current time
func NewTrigger(kind TriggerKind, identity PageIdentity) Trigger {
	return Trigger{
		Kind:      kind,
		Identity:  identity,
		CreatedAt: time.Now(),
	}
}
