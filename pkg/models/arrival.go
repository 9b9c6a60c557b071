package models

import "time"

// WaveformStreamID references the stream a pick was made on
type WaveformStreamID struct {
	NetworkCode  string `json:"network_code"`
	StationCode  string `json:"station_code"`
	LocationCode string `json:"location_code,omitempty"`
	ChannelCode  string `json:"channel_code,omitempty"`
}

// Pick is a detected signal onset at a station
type Pick struct {
	ID           string           `json:"id"`
	Time         time.Time        `json:"time"`
	WaveformID   WaveformStreamID `json:"waveform_id"`
	PhaseHint    string           `json:"phase_hint,omitempty"`
	CreationInfo CreationInfo     `json:"creation_info"`
}

// StationKey identifies the station/phase combination an arrival observes.
// Two arrivals with the same key describe the same observation.
type StationKey struct {
	NetworkCode string
	StationCode string
	Phase       string
}

// Key returns the deduplication key of the pick
func (p *Pick) Key() StationKey {
	return StationKey{
		NetworkCode: p.WaveformID.NetworkCode,
		StationCode: p.WaveformID.StationCode,
		Phase:       p.PhaseHint,
	}
}

// Arrival is an origin's use of a single pick. Weight 0 means present but unused.
type Arrival struct {
	PickID       string   `json:"pick_id"`
	Phase        string   `json:"phase,omitempty"`
	Weight       float64  `json:"weight"`
	Distance     *float64 `json:"distance,omitempty"`
	Azimuth      *float64 `json:"azimuth,omitempty"`
	TimeResidual *float64 `json:"time_residual,omitempty"`
}

// Clone copies the arrival including its optional values
func (a Arrival) Clone() Arrival {
	clone := a
	clone.Distance = cloneFloat(a.Distance)
	clone.Azimuth = cloneFloat(a.Azimuth)
	clone.TimeResidual = cloneFloat(a.TimeResidual)
	return clone
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
