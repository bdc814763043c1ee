package incident

import (
	"time"

	"github.com/Subham15-Dutta/roadresq/internal/geo"
)

// Status represents the lifecycle stage of an incident.
type Status string

const (
	StatusNew        Status = "New"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// validStatuses is the set of recognized status values.
var validStatuses = map[Status]bool{
	StatusNew:        true,
	StatusAssigned:   true,
	StatusInProgress: true,
	StatusResolved:   true,
}

// ValidStatus reports whether s is a recognized status.
func ValidStatus(s Status) bool { return validStatuses[s] }

// Draft is the in-progress incident being built by a dialog session. Fields
// are nullable (zero) until collected; a Draft must have a type and a
// positive people count before it can be promoted to an Incident.
type Draft struct {
	Type        string           `json:"type"`
	SubService  string           `json:"sub_service,omitempty"`
	Location    string           `json:"location,omitempty"`
	Coordinates *geo.Coordinates `json:"coordinates,omitempty"`
	PeopleCount int              `json:"people_count,omitempty"`
	CallerID    string           `json:"caller_id,omitempty"`
}

// Incident is a finalized emergency record. It is immutable after creation
// except for its status.
type Incident struct {
	ID          string           `json:"incident_id"`
	Type        string           `json:"type"`
	SubService  string           `json:"sub_service,omitempty"`
	Location    string           `json:"location"`
	Coordinates *geo.Coordinates `json:"coordinates,omitempty"`
	PeopleCount int              `json:"people_count"`
	CallerID    string           `json:"caller_id"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"timestamp"`
}

// ListFilter controls which incidents to return. Query is a free-text search
// across id, location, type, sub-service, caller id and status.
type ListFilter struct {
	Type   string
	Status Status
	Query  string
}

// Stats summarises the store for the dashboard header.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"` // everything not yet Resolved
}
