// Package schema validates inbound transcript events before they reach a
// session.
package schema

import (
	"errors"
	"fmt"
	"math"

	"ai-teleprompter-service/internal/models"
)

// ErrInvalidEvent is wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid transcript event")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks a *models.TranscriptPartial or *models.TranscriptFinal (or
// their values). Any other type is rejected.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case *models.TranscriptPartial:
		return v.validatePartial(ev)
	case models.TranscriptPartial:
		return v.validatePartial(&ev)
	case *models.TranscriptFinal:
		return v.validateFinal(ev)
	case models.TranscriptFinal:
		return v.validateFinal(&ev)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidEvent, event)
	}
}

func (v *Validator) validatePartial(ev *models.TranscriptPartial) error {
	if ev == nil {
		return fmt.Errorf("%w: nil partial", ErrInvalidEvent)
	}
	var errs []error
	errs = append(errs, required("interactionId", ev.InteractionID))
	errs = append(errs, required("segmentId", ev.SegmentID))
	if ev.Timestamp < 0 {
		errs = append(errs, fmt.Errorf("%w: negative timestamp %d", ErrInvalidEvent, ev.Timestamp))
	}
	return errors.Join(errs...)
}

func (v *Validator) validateFinal(ev *models.TranscriptFinal) error {
	if ev == nil {
		return fmt.Errorf("%w: nil final", ErrInvalidEvent)
	}
	var errs []error
	errs = append(errs, required("interactionId", ev.InteractionID))
	errs = append(errs, required("segmentId", ev.SegmentID))
	if ev.Timestamp < 0 {
		errs = append(errs, fmt.Errorf("%w: negative timestamp %d", ErrInvalidEvent, ev.Timestamp))
	}
	if math.IsNaN(ev.Confidence) || ev.Confidence < 0 || ev.Confidence > 1 {
		errs = append(errs, fmt.Errorf("%w: confidence %v outside [0, 1]", ErrInvalidEvent, ev.Confidence))
	}
	if ev.AudioOffsetMs < 0 {
		errs = append(errs, fmt.Errorf("%w: negative audioOffsetMs %d", ErrInvalidEvent, ev.AudioOffsetMs))
	}
	return errors.Join(errs...)
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidEvent, field)
	}
	return nil
}
