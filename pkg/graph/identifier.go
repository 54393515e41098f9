package graph

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrUnsafeIdentifier = errors.New("unsafe graph identifier")

// IdentifierError names the label or relationship type that failed the
// allow-list.
type IdentifierError struct {
	Kind  string
	Value string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("unsafe graph %s %q", e.Kind, e.Value)
}

func (e *IdentifierError) Unwrap() error {
	return ErrUnsafeIdentifier
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s may be interpolated into query text as
// a label or relationship type.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// CheckLabel returns an *IdentifierError when label is not allowed.
func CheckLabel(label string) error {
	if !ValidIdentifier(label) {
		return &IdentifierError{Kind: "label", Value: label}
	}
	return nil
}

// CheckRelationshipType returns an *IdentifierError when t is not allowed.
func CheckRelationshipType(t string) error {
	if !ValidIdentifier(t) {
		return &IdentifierError{Kind: "relationship type", Value: t}
	}
	return nil
}

// Validate checks every identifier an intent carries.
func Validate(intent Intent) error {
	switch in := intent.(type) {
	case Node:
		return CheckLabel(in.Label)
	case Relationship:
		if err := CheckLabel(in.SourceLabel); err != nil {
			return err
		}
		if err := CheckLabel(in.TargetLabel); err != nil {
			return err
		}
		return CheckRelationshipType(in.Type)
	default:
		return fmt.Errorf("unsupported intent %T", intent)
	}
}
