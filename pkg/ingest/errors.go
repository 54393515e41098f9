package ingest

import (
	"errors"
	"fmt"

	"github.com/praetorian-inc/aztopo/pkg/azure/hop"
	"github.com/praetorian-inc/aztopo/pkg/azure/resourceid"
	"github.com/praetorian-inc/aztopo/pkg/graph"
)

var (
	ErrUnrecognizedDestinationHop = errors.New("unrecognized destination hop")
	ErrInvalidDocument            = errors.New("invalid document")
)

// DestinationError reports a next hop that could not be resolved to a
// known destination. Resolved is empty when the next hop id has no entry in
// the resolution table.
type DestinationError struct {
	HopID     string
	NextHopID string
	Resolved  string
}

func (e *DestinationError) Error() string {
	if e.Resolved == "" {
		return fmt.Sprintf("hop %q: next hop %q is not part of the connectivity check", e.HopID, e.NextHopID)
	}
	return fmt.Sprintf("hop %q: next hop %q resolved to unrecognized resource %q", e.HopID, e.NextHopID, e.Resolved)
}

func (e *DestinationError) Unwrap() error {
	return ErrUnrecognizedDestinationHop
}

// Stable error codes reported by the HTTP and MCP surfaces.
const (
	CodeMalformedResourceID       = "MALFORMED_RESOURCE_ID"
	CodeUnrecognizedHopResourceID = "UNRECOGNIZED_HOP_RESOURCE_ID"
	CodeUnrecognizedDestination   = "UNRECOGNIZED_DESTINATION_HOP"
	CodeUnsafeIdentifier          = "UNSAFE_IDENTIFIER"
)

// ErrorCode returns the stable code of a build error, or "" when err is
// not one.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, resourceid.ErrMalformedResourceID):
		return CodeMalformedResourceID
	case errors.Is(err, hop.ErrUnrecognizedHopResourceID):
		return CodeUnrecognizedHopResourceID
	case errors.Is(err, ErrUnrecognizedDestinationHop):
		return CodeUnrecognizedDestination
	case errors.Is(err, graph.ErrUnsafeIdentifier):
		return CodeUnsafeIdentifier
	default:
		return ""
	}
}

// IsDataError reports whether err describes a problem with the ingested
// data rather than with the sink or the environment.
func IsDataError(err error) bool {
	return ErrorCode(err) != ""
}
