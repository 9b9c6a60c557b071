package mocks

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relocation"
)

// LocatorCall is one recorded relocation request
type LocatorCall struct {
	Locator  string
	Settings relocation.Settings
	Origin   *models.Origin
	Picks    []models.Pick
}

// LocatorResult scripts the answer to one Relocate call. A nil Origin and nil Err
// echoes the input back.
type LocatorResult struct {
	Origin *models.Origin
	Err    error
}

// Locator answers Relocate calls from its script, in order. Once the script is
// used up the input origin is echoed.
type Locator struct {
	LocatorName  string
	Results      []LocatorResult
	ConfigureErr error

	settings relocation.Settings
	calls    *[]LocatorCall
	served   int
}

func (l *Locator) Name() string {
	return l.LocatorName
}

func (l *Locator) Configure(settings relocation.Settings) error {
	if l.ConfigureErr != nil {
		return l.ConfigureErr
	}
	l.settings = settings
	return nil
}

func (l *Locator) Relocate(ctx context.Context, origin *models.Origin, picks []models.Pick) (*models.Origin, error) {
	if l.calls != nil {
		*l.calls = append(*l.calls, LocatorCall{
			Locator:  l.LocatorName,
			Settings: l.settings,
			Origin:   origin.Clone(),
			Picks:    append([]models.Pick(nil), picks...),
		})
	}

	if l.served >= len(l.Results) {
		return origin.Clone(), nil
	}
	result := l.Results[l.served]
	l.served++
	if result.Err != nil {
		return nil, result.Err
	}
	if result.Origin == nil {
		return origin.Clone(), nil
	}
	return result.Origin.Clone(), nil
}

// Fail is a scripted computational failure
func Fail(locator, message string) LocatorResult {
	return LocatorResult{Err: &relocation.ComputationError{Locator: locator, Err: fmt.Errorf("%s", message)}}
}

// LocatorFactory hands out the registered locators and records every call they serve
type LocatorFactory struct {
	Locators map[string]*Locator
	Created  []string
	Calls    []LocatorCall
}

func NewLocatorFactory(locators ...*Locator) *LocatorFactory {
	f := &LocatorFactory{Locators: map[string]*Locator{}}
	for _, l := range locators {
		f.Locators[l.LocatorName] = l
	}
	return f
}

func (f *LocatorFactory) Create(name string) (relocation.Locator, error) {
	l, ok := f.Locators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", relocation.ErrLocatorUnavailable, name)
	}
	l.calls = &f.Calls
	f.Created = append(f.Created, name)
	return l, nil
}
