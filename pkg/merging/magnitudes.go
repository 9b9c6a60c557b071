package merging

import "github.com/Ramsey-B/fern/pkg/models"

// CopyMagnitudes appends a copy of every magnitude of source to destination under fresh ids
func CopyMagnitudes(source, destination *models.Origin, newID func() string) {
	for _, mag := range source.Magnitudes {
		copied := mag
		copied.ID = newID()
		destination.Magnitudes = append(destination.Magnitudes, copied)
	}
}

// CopyStationMagnitudes appends a copy of every station magnitude of source to destination under fresh ids
func CopyStationMagnitudes(source, destination *models.Origin, newID func() string) {
	for _, mag := range source.StationMagnitudes {
		copied := mag
		copied.ID = newID()
		destination.StationMagnitudes = append(destination.StationMagnitudes, copied)
	}
}
