package model

import "time"

// Order is one appraisal engagement: the subject property plus everything the
// pipeline accumulates against it.
type Order struct {
	ID        string           `json:"id"`
	Subject   Subject          `json:"subject"`
	TimeAdj   *TimeAdjustments `json:"time_adjustments,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
