package dto

import "github.com/fixify-hostel/fixify-api/internal/models"

// QueueItem is one open complaint in a facility bucket.
type QueueItem struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	OpenedAt    string `json:"opened_at"`
}

// FacilityBucket groups open complaints by facility display name. FacilityIDs
// records every facility type merged into the bucket.
type FacilityBucket struct {
	FacilityName string      `json:"facility_name"`
	FacilityIDs  []int       `json:"facility_ids"`
	Complaints   []QueueItem `json:"complaints"`
}

// GroupedQueueResponse is the staff view of open complaints in their group.
type GroupedQueueResponse struct {
	GroupName  string           `json:"group_name,omitempty"`
	Individual []FacilityBucket `json:"individual"`
	Shared     []FacilityBucket `json:"shared"`
}

// AgingBucket counts unresolved complaints by age.
type AgingBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WorkloadResponse lists the complaints assigned to the viewer.
type WorkloadResponse struct {
	Items      []ComplaintSummary `json:"items"`
	Aging      []AgingBucket      `json:"aging"`
	Pagination models.Pagination  `json:"pagination"`
}
