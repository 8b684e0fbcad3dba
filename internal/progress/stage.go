package progress

import (
	"fmt"
	"strings"
)

// Stage is a planning-pipeline milestone code.
type Stage string

// Pipeline stages in order. StageCancelled is terminal and sits outside the order.
const (
	StagePreProposal         Stage = "pre_proposal"
	StageEstimateCompleted   Stage = "estimate_completed"
	StageSampleApproved      Stage = "sample_approved"
	StageDecisionObtained    Stage = "decision_obtained"
	StagePreProductionSample Stage = "pre_production_sample_confirmed"
	StageFirstOrder          Stage = "first_order"
	StageTemporarilyListed   Stage = "temporarily_listed"
	StageListingLive         Stage = "listing_live"
	StageSecondLotOrdered    Stage = "second_lot_ordered"
	StageCancelled           Stage = "project_cancelled"
)

// Pipeline lists the ordered stages a product group moves through.
var Pipeline = []Stage{
	StagePreProposal,
	StageEstimateCompleted,
	StageSampleApproved,
	StageDecisionObtained,
	StagePreProductionSample,
	StageFirstOrder,
	StageTemporarilyListed,
	StageListingLive,
	StageSecondLotOrdered,
}

// stageLabels holds display labels for each stage.
var stageLabels = map[Stage]string{
	StagePreProposal:         "Pre-proposal",
	StageEstimateCompleted:   "Estimate completed",
	StageSampleApproved:      "Sample approved",
	StageDecisionObtained:    "Decision obtained",
	StagePreProductionSample: "Pre-production sample confirmed",
	StageFirstOrder:          "First order placed",
	StageTemporarilyListed:   "Temporarily listed",
	StageListingLive:         "Listing live",
	StageSecondLotOrdered:    "Second lot ordered",
	StageCancelled:           "Cancelled",
}

// ParseStage validates a stage code, tolerating surrounding whitespace and case.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stageLabels[st]; !ok {
		return "", fmt.Errorf("progress: unknown planning stage %q", s)
	}
	return st, nil
}

// Label returns the human-readable stage name, or the raw code if unknown.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Index returns the stage's position in Pipeline, or -1 for cancelled/unknown.
func (s Stage) Index() int {
	for i, p := range Pipeline {
		if p == s {
			return i
		}
	}
	return -1
}

// IsCompleted reports whether the stage marks a finished product group.
func (s Stage) IsCompleted() bool { return s == StageSecondLotOrdered }

// IsCancelled reports whether the stage marks an abandoned product group.
func (s Stage) IsCancelled() bool { return s == StageCancelled }
