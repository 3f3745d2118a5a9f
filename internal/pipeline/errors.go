package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies how an interaction ended.
type Kind int

const (
	// OK is not an error kind; it is reported for interactions that completed.
	OK Kind = iota
	InputRejected
	ResolutionFailed
	SearchFailed
	FetchFailed
	DeliveryFailed
	Unhandled
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case InputRejected:
		return "input_rejected"
	case ResolutionFailed:
		return "resolution_failed"
	case SearchFailed:
		return "search_failed"
	case FetchFailed:
		return "fetch_failed"
	case DeliveryFailed:
		return "delivery_failed"
	case Unhandled:
		return "unhandled"
	default:
		return ""
	}
}

var (
	ErrTooShort         = errors.New("query too short")
	ErrBusy             = errors.New("request already in flight")
	ErrNothingFound     = errors.New("no candidates found")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrFileMissing      = errors.New("fetched file is missing")
)

// Error is the terminal error of an interaction.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the [Kind] carried by err: [OK] for nil and [Unhandled] for errors not
// produced by the pipeline.
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Unhandled
}
