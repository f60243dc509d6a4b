package failures

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrFrameSource   = errors.New("frame source error")
	ErrPacking       = errors.New("packing error")
	ErrPersistence   = errors.New("persistence error")
)

// Kind values reported by Kind.
const (
	KindConfiguration = "configuration"
	KindFrameSource   = "frame_source"
	KindPacking       = "packing"
	KindPersistence   = "persistence"
	KindCanceled      = "canceled"
	KindUnknown       = "unknown"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Configuration is shorthand for Wrap(ErrConfiguration, ...) with a formatted message.
func Configuration(component, format string, args ...any) error {
	return Wrap(ErrConfiguration, component, "", fmt.Sprintf(format, args...), nil)
}

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrFrameSource):
		return KindFrameSource
	case errors.Is(err, ErrPacking):
		return KindPacking
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "encode failure"
	}
	return strings.Join(parts, ": ")
}
