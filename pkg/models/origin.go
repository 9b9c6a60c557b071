package models

import "time"

// CreationInfo identifies who produced an object and when
type CreationInfo struct {
	AgencyID     string    `json:"agency_id"`
	Author       string    `json:"author"`
	CreationTime time.Time `json:"creation_time"`
}

// RealQuantity is a value with an optional uncertainty
type RealQuantity struct {
	Value       float64  `json:"value"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
}

// Origin is a computed source location/time solution for an event
type Origin struct {
	ID                string             `json:"id"`
	Time              time.Time          `json:"time"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	Depth             *RealQuantity      `json:"depth,omitempty"`
	EarthModelID      string             `json:"earth_model_id,omitempty"`
	MethodID          string             `json:"method_id,omitempty"`
	EvaluationMode    EvaluationMode     `json:"evaluation_mode,omitempty"`
	EvaluationStatus  EvaluationStatus   `json:"evaluation_status,omitempty"`
	CreationInfo      CreationInfo       `json:"creation_info"`
	Arrivals          []Arrival          `json:"arrivals,omitempty"`
	Magnitudes        []Magnitude        `json:"magnitudes,omitempty"`
	StationMagnitudes []StationMagnitude `json:"station_magnitudes,omitempty"`
}

// ArrivalCount returns the number of arrivals attached to the origin
func (o *Origin) ArrivalCount() int {
	return len(o.Arrivals)
}

// HasPick reports whether an arrival of the origin already references the pick
func (o *Origin) HasPick(pickID string) bool {
	for i := range o.Arrivals {
		if o.Arrivals[i].PickID == pickID {
			return true
		}
	}
	return false
}

// IsCreatedBy reports whether the origin carries the given author/agency identity
func (o *Origin) IsCreatedBy(author, agencyID string) bool {
	return o.CreationInfo.Author == author && o.CreationInfo.AgencyID == agencyID
}

// CloneHeader copies the origin without its arrivals, magnitudes and station magnitudes
func (o *Origin) CloneHeader() *Origin {
	clone := *o
	clone.Depth = o.Depth.Clone()
	clone.Arrivals = nil
	clone.Magnitudes = nil
	clone.StationMagnitudes = nil
	return &clone
}

// Clone returns a deep copy of the origin
func (o *Origin) Clone() *Origin {
	clone := o.CloneHeader()
	clone.Arrivals = make([]Arrival, len(o.Arrivals))
	for i := range o.Arrivals {
		clone.Arrivals[i] = o.Arrivals[i].Clone()
	}
	clone.Magnitudes = append([]Magnitude(nil), o.Magnitudes...)
	clone.StationMagnitudes = append([]StationMagnitude(nil), o.StationMagnitudes...)
	return clone
}

// Clone copies the quantity. A nil receiver yields nil.
func (q *RealQuantity) Clone() *RealQuantity {
	if q == nil {
		return nil
	}
	clone := *q
	if q.Uncertainty != nil {
		u := *q.Uncertainty
		clone.Uncertainty = &u
	}
	return &clone
}
