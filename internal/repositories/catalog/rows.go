package catalog

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

type eventRow struct {
	ID                string    `db:"id"`
	PreferredOriginID string    `db:"preferred_origin_id"`
	AgencyID          string    `db:"agency_id"`
	Author            string    `db:"author"`
	CreationTime      time.Time `db:"creation_time"`
}

type originRow struct {
	ID               string    `db:"id"`
	Time             time.Time `db:"time"`
	Latitude         float64   `db:"latitude"`
	Longitude        float64   `db:"longitude"`
	Depth            *float64  `db:"depth"`
	DepthUncertainty *float64  `db:"depth_uncertainty"`
	EarthModelID     string    `db:"earth_model_id"`
	MethodID         string    `db:"method_id"`
	EvaluationMode   string    `db:"evaluation_mode"`
	EvaluationStatus string    `db:"evaluation_status"`
	AgencyID         string    `db:"agency_id"`
	Author           string    `db:"author"`
	CreationTime     time.Time `db:"creation_time"`
}

type arrivalRow struct {
	OriginID     string   `db:"origin_id"`
	PickID       string   `db:"pick_id"`
	Position     int      `db:"position"`
	Phase        string   `db:"phase"`
	Weight       float64  `db:"weight"`
	Distance     *float64 `db:"distance"`
	Azimuth      *float64 `db:"azimuth"`
	TimeResidual *float64 `db:"time_residual"`
}

type pickRow struct {
	ID           string    `db:"id"`
	Time         time.Time `db:"time"`
	NetworkCode  string    `db:"network_code"`
	StationCode  string    `db:"station_code"`
	LocationCode string    `db:"location_code"`
	ChannelCode  string    `db:"channel_code"`
	PhaseHint    string    `db:"phase_hint"`
	AgencyID     string    `db:"agency_id"`
	Author       string    `db:"author"`
	CreationTime time.Time `db:"creation_time"`
}

type magnitudeRow struct {
	ID           string    `db:"id"`
	OriginID     string    `db:"origin_id"`
	Type         string    `db:"type"`
	Value        float64   `db:"value"`
	Uncertainty  *float64  `db:"uncertainty"`
	StationCount *int      `db:"station_count"`
	MethodID     string    `db:"method_id"`
	AgencyID     string    `db:"agency_id"`
	Author       string    `db:"author"`
	CreationTime time.Time `db:"creation_time"`
}

type stationMagnitudeRow struct {
	ID           string    `db:"id"`
	OriginID     string    `db:"origin_id"`
	Type         string    `db:"type"`
	Value        float64   `db:"value"`
	AmplitudeID  string    `db:"amplitude_id"`
	NetworkCode  string    `db:"network_code"`
	StationCode  string    `db:"station_code"`
	LocationCode string    `db:"location_code"`
	ChannelCode  string    `db:"channel_code"`
	AgencyID     string    `db:"agency_id"`
	Author       string    `db:"author"`
	CreationTime time.Time `db:"creation_time"`
}

var (
	originColumns           = []string{"id", "time", "latitude", "longitude", "depth", "depth_uncertainty", "earth_model_id", "method_id", "evaluation_mode", "evaluation_status", "agency_id", "author", "creation_time"}
	arrivalColumns          = []string{"origin_id", "pick_id", "position", "phase", "weight", "distance", "azimuth", "time_residual"}
	pickColumns             = []string{"id", "time", "network_code", "station_code", "location_code", "channel_code", "phase_hint", "agency_id", "author", "creation_time"}
	magnitudeColumns        = []string{"id", "origin_id", "type", "value", "uncertainty", "station_count", "method_id", "agency_id", "author", "creation_time"}
	stationMagnitudeColumns = []string{"id", "origin_id", "type", "value", "amplitude_id", "network_code", "station_code", "location_code", "channel_code", "agency_id", "author", "creation_time"}
)

func (r eventRow) toModel() *models.Event {
	return &models.Event{
		ID:                r.ID,
		PreferredOriginID: r.PreferredOriginID,
		CreationInfo:      models.CreationInfo{AgencyID: r.AgencyID, Author: r.Author, CreationTime: r.CreationTime},
	}
}

// toModel tolerates unknown evaluation modes by leaving the mode unset
func (r originRow) toModel() *models.Origin {
	origin := &models.Origin{
		ID:               r.ID,
		Time:             r.Time,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		EarthModelID:     r.EarthModelID,
		MethodID:         r.MethodID,
		EvaluationStatus: models.EvaluationStatus(r.EvaluationStatus),
		CreationInfo:     models.CreationInfo{AgencyID: r.AgencyID, Author: r.Author, CreationTime: r.CreationTime},
	}
	if mode, err := models.ParseEvaluationMode(r.EvaluationMode); err == nil {
		origin.EvaluationMode = mode
	}
	if r.Depth != nil {
		origin.Depth = &models.RealQuantity{Value: *r.Depth, Uncertainty: r.DepthUncertainty}
	}
	return origin
}

func newOriginRow(o *models.Origin) originRow {
	row := originRow{
		ID:               o.ID,
		Time:             o.Time,
		Latitude:         o.Latitude,
		Longitude:        o.Longitude,
		EarthModelID:     o.EarthModelID,
		MethodID:         o.MethodID,
		EvaluationMode:   o.EvaluationMode.String(),
		EvaluationStatus: string(o.EvaluationStatus),
		AgencyID:         o.CreationInfo.AgencyID,
		Author:           o.CreationInfo.Author,
		CreationTime:     o.CreationInfo.CreationTime,
	}
	if o.Depth != nil {
		depth := o.Depth.Value
		row.Depth = &depth
		row.DepthUncertainty = o.Depth.Uncertainty
	}
	return row
}

func (r arrivalRow) toModel() models.Arrival {
	return models.Arrival{
		PickID:       r.PickID,
		Phase:        r.Phase,
		Weight:       r.Weight,
		Distance:     r.Distance,
		Azimuth:      r.Azimuth,
		TimeResidual: r.TimeResidual,
	}
}

func (r pickRow) toModel() models.Pick {
	return models.Pick{
		ID:   r.ID,
		Time: r.Time,
		WaveformID: models.WaveformStreamID{
			NetworkCode:  r.NetworkCode,
			StationCode:  r.StationCode,
			LocationCode: r.LocationCode,
			ChannelCode:  r.ChannelCode,
		},
		PhaseHint:    r.PhaseHint,
		CreationInfo: models.CreationInfo{AgencyID: r.AgencyID, Author: r.Author, CreationTime: r.CreationTime},
	}
}

func (r magnitudeRow) toModel() models.Magnitude {
	return models.Magnitude{
		ID:           r.ID,
		Type:         r.Type,
		Value:        r.Value,
		Uncertainty:  r.Uncertainty,
		StationCount: r.StationCount,
		MethodID:     r.MethodID,
		CreationInfo: models.CreationInfo{AgencyID: r.AgencyID, Author: r.Author, CreationTime: r.CreationTime},
	}
}

func (r stationMagnitudeRow) toModel() models.StationMagnitude {
	return models.StationMagnitude{
		ID:          r.ID,
		Type:        r.Type,
		Value:       r.Value,
		AmplitudeID: r.AmplitudeID,
		WaveformID: models.WaveformStreamID{
			NetworkCode:  r.NetworkCode,
			StationCode:  r.StationCode,
			LocationCode: r.LocationCode,
			ChannelCode:  r.ChannelCode,
		},
		CreationInfo: models.CreationInfo{AgencyID: r.AgencyID, Author: r.Author, CreationTime: r.CreationTime},
	}
}
