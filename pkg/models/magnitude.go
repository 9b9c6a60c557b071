package models

// Magnitude is a network magnitude attached to an origin
type Magnitude struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Value        float64      `json:"value"`
	Uncertainty  *float64     `json:"uncertainty,omitempty"`
	StationCount *int         `json:"station_count,omitempty"`
	MethodID     string       `json:"method_id,omitempty"`
	CreationInfo CreationInfo `json:"creation_info"`
}

// StationMagnitude is a single-station magnitude attached to an origin
type StationMagnitude struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	Value        float64          `json:"value"`
	AmplitudeID  string           `json:"amplitude_id,omitempty"`
	WaveformID   WaveformStreamID `json:"waveform_id"`
	CreationInfo CreationInfo     `json:"creation_info"`
}
