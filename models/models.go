package models

import "slices"

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeWindow names one period of the day (e.g. "Morning"). The ordered
// window list for a run is fixed at configuration time.
type TimeWindow string

// Status tracks an appointment through the run.
type Status int

const (
	StatusPending Status = iota
	StatusAssigned
	StatusUnassigned
)

func (s Status) String() string {
	switch s {
	case StatusAssigned:
		return "Assigned"
	case StatusUnassigned:
		return "Unassigned"
	default:
		return "Pending"
	}
}

// UnassignedReason categorizes why an appointment ended up without a
// representative.
type UnassignedReason int

const (
	ReasonNone UnassignedReason = iota
	// ReasonNoAvailableRepresentative: the window had no representative
	// left for this appointment. Either the roster snapshot was empty
	// or every feasible representative was matched elsewhere.
	ReasonNoAvailableRepresentative
	// ReasonNoExpertiseMatch: representatives were available but none
	// covered the appointment's required tags.
	ReasonNoExpertiseMatch
	// ReasonOracleUnavailable: the window's solve was aborted because
	// travel costs could not be obtained.
	ReasonOracleUnavailable
)

func (r UnassignedReason) String() string {
	switch r {
	case ReasonNoAvailableRepresentative:
		return "NoAvailableRepresentative"
	case ReasonNoExpertiseMatch:
		return "NoExpertiseMatch"
	case ReasonOracleUnavailable:
		return "OracleUnavailable"
	default:
		return "None"
	}
}

// Representative is a field rep. Location starts at Home and is advanced
// by the orchestrator to the location of the last appointment served.
type Representative struct {
	ID        string
	Name      string
	Expertise []string
	Available map[TimeWindow]bool
	Home      Coordinate
	Location  Coordinate
	// History records served appointment IDs in window order.
	History []string
}

// AvailableFor reports whether the rep's availability flag is set for w.
func (r *Representative) AvailableFor(w TimeWindow) bool {
	return r.Available[w]
}

// CoversAll reports whether the rep's expertise includes every required tag.
func (r *Representative) CoversAll(required []string) bool {
	for _, tag := range required {
		if !slices.Contains(r.Expertise, tag) {
			return false
		}
	}
	return true
}

// CoversAny reports whether the rep's expertise includes at least one
// required tag. An appointment with no required tags is covered by anyone.
func (r *Representative) CoversAny(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, tag := range required {
		if slices.Contains(r.Expertise, tag) {
			return true
		}
	}
	return false
}

// Appointment is one in-home customer visit. Only Status, AssignedTo and
// Reason change after import.
type Appointment struct {
	ID           string
	Location     Coordinate
	RequiredTags []string
	Window       TimeWindow
	Status       Status
	AssignedTo   string
	Reason       UnassignedReason
}

// Assignment is a committed (appointment, representative) pairing for one
// window. Immutable once recorded. The representative's name is captured
// at commit time so reports survive later roster removals.
type Assignment struct {
	Window             TimeWindow
	AppointmentID      string
	RepresentativeID   string
	RepresentativeName string
	Cost               float64
}
