package lifecycle

import "github.com/Ramsey-B/fern/pkg/merging"

// Reason explains why an event was not merged
type Reason string

const (
	ReasonNoPrimary       Reason = "no_primary_origin"
	ReasonNoSecondary     Reason = "no_secondary_origin"
	ReasonAlreadyMerged   Reason = "already_merged"
	ReasonNothingNew      Reason = "nothing_new_to_merge"
	ReasonNothingToRemove Reason = "remove_only_nothing_to_remove"
	ReasonRemoveOnly      Reason = "remove_only"
	ReasonOrphaned        Reason = "merged_origin_without_secondary"
	ReasonStale           Reason = "merged_origin_predates_secondary"
)

// Action is what the lifecycle manager does with an event after selection
type Action int

const (
	ActionNone Action = iota
	ActionRemove
	ActionMerge
)

// Decision is the outcome of the per-event state machine
type Decision struct {
	Action Action
	Reason Reason
}

// Decide runs the removal/merge state machine on a context whose primary,
// secondary and merged origins have been selected.
func Decide(mc *merging.MergeContext, removeOnly bool) Decision {
	if mc.Merged != nil {
		switch {
		case removeOnly:
			return Decision{Action: ActionRemove, Reason: ReasonRemoveOnly}
		case mc.Secondary == nil:
			return Decision{Action: ActionRemove, Reason: ReasonOrphaned}
		case mc.Merged.CreationInfo.CreationTime.Before(mc.Secondary.CreationInfo.CreationTime):
			return Decision{Action: ActionRemove, Reason: ReasonStale}
		default:
			return Decision{Action: ActionNone, Reason: ReasonAlreadyMerged}
		}
	}
	if removeOnly {
		return Decision{Action: ActionNone, Reason: ReasonNothingToRemove}
	}
	if mc.Secondary == nil {
		return Decision{Action: ActionNone, Reason: ReasonNoSecondary}
	}
	return Decision{Action: ActionMerge}
}
