// Package relocation drives an external locator through an ordered cascade of
// parameter sets until one attempt relocates the merge candidate.
package relocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Settings configures a locator before a relocation call
type Settings struct {
	Profile string
	// FixedDepth pins the hypocenter depth in km; nil lets the locator solve for it
	FixedDepth            *float64
	DistanceCutOff        *float64
	IgnoreInitialLocation bool
}

// Locator is an external relocation algorithm instance
type Locator interface {
	Name() string
	Configure(settings Settings) error
	Relocate(ctx context.Context, origin *models.Origin, picks []models.Pick) (*models.Origin, error)
}

// Factory creates locators by name
type Factory interface {
	Create(name string) (Locator, error)
}

// ErrLocatorUnavailable is returned by factories that do not know the requested locator
var ErrLocatorUnavailable = errors.New("locator unavailable")

// ErrExhausted is returned when every attempt of the cascade failed
var ErrExhausted = errors.New("all relocation attempts failed")

// ComputationError marks a failure of the location algorithm itself, as opposed
// to a failure reaching it. The cascade moves on to its next attempt.
type ComputationError struct {
	Locator string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("locator %s failed: %v", e.Locator, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
