package mocks

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// BaseTime is the reference time of every fixture
var BaseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func Float(v float64) *float64 {
	return &v
}

// NewPick builds a pick observed at BaseTime
func NewPick(id, network, station, phase string) models.Pick {
	return models.Pick{
		ID:   id,
		Time: BaseTime,
		WaveformID: models.WaveformStreamID{
			NetworkCode: network,
			StationCode: station,
			ChannelCode: "HHZ",
		},
		PhaseHint: phase,
	}
}

func NewArrival(pickID, phase string, weight float64) models.Arrival {
	return models.Arrival{PickID: pickID, Phase: phase, Weight: weight}
}

// NewOrigin builds an automatic origin created by the agency at created
func NewOrigin(id, agencyID string, created time.Time, arrivals ...models.Arrival) *models.Origin {
	return &models.Origin{
		ID:               id,
		Time:             BaseTime,
		Latitude:         46.5,
		Longitude:        8.1,
		Depth:            &models.RealQuantity{Value: 10, Uncertainty: Float(2.5)},
		EvaluationMode:   models.EvaluationModeAutomatic,
		EvaluationStatus: models.EvaluationStatusPreliminary,
		CreationInfo: models.CreationInfo{
			AgencyID:     agencyID,
			Author:       agencyID + "-autoloc",
			CreationTime: created,
		},
		Arrivals: arrivals,
	}
}

// NewEvent builds an event preferring the given origin
func NewEvent(id, preferredOriginID string) *models.Event {
	return &models.Event{
		ID:                id,
		PreferredOriginID: preferredOriginID,
		CreationInfo:      models.CreationInfo{CreationTime: BaseTime},
	}
}
