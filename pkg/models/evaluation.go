package models

import "fmt"

// EvaluationMode tells whether an origin was produced by an analyst or by an automatic process
type EvaluationMode uint8

const (
	// EvaluationModeUnset is the zero value for origins that carry no mode
	EvaluationModeUnset EvaluationMode = iota
	EvaluationModeManual
	EvaluationModeAutomatic
)

func (m EvaluationMode) String() string {
	switch m {
	case EvaluationModeManual:
		return "manual"
	case EvaluationModeAutomatic:
		return "automatic"
	default:
		return ""
	}
}

// ParseEvaluationMode converts the wire/config spelling into an EvaluationMode
func ParseEvaluationMode(s string) (EvaluationMode, error) {
	switch s {
	case "manual":
		return EvaluationModeManual, nil
	case "automatic":
		return EvaluationModeAutomatic, nil
	default:
		return EvaluationModeUnset, fmt.Errorf("invalid evaluation mode %q (use 'manual' or 'automatic')", s)
	}
}

func (m EvaluationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *EvaluationMode) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = EvaluationModeUnset
		return nil
	}
	parsed, err := ParseEvaluationMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// EvaluationStatus is the review state of an origin
type EvaluationStatus string

const (
	EvaluationStatusPreliminary EvaluationStatus = "preliminary"
	EvaluationStatusConfirmed   EvaluationStatus = "confirmed"
	EvaluationStatusReviewed    EvaluationStatus = "reviewed"
	EvaluationStatusFinal       EvaluationStatus = "final"
	EvaluationStatusRejected    EvaluationStatus = "rejected"
)
