package models

// Event aggregates candidate origins, one of which is preferred
type Event struct {
	ID                string       `json:"id"`
	PreferredOriginID string       `json:"preferred_origin_id,omitempty"`
	OriginReferences  []string     `json:"origin_references,omitempty"`
	CreationInfo      CreationInfo `json:"creation_info"`
}

// HasOriginReference reports whether the event references the origin
func (e *Event) HasOriginReference(originID string) bool {
	for _, ref := range e.OriginReferences {
		if ref == originID {
			return true
		}
	}
	return false
}

// RemoveOriginReference drops the reference and reports whether it was present
func (e *Event) RemoveOriginReference(originID string) bool {
	for i, ref := range e.OriginReferences {
		if ref == originID {
			e.OriginReferences = append(e.OriginReferences[:i:i], e.OriginReferences[i+1:]...)
			return true
		}
	}
	return false
}

// AddOriginReference appends the reference unless it already exists
func (e *Event) AddOriginReference(originID string) bool {
	if e.HasOriginReference(originID) {
		return false
	}
	e.OriginReferences = append(e.OriginReferences, originID)
	return true
}
