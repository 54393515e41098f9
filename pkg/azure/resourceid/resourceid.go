// Package resourceid decodes Azure Resource Manager resource identifiers.
package resourceid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResourceID is returned when a string does not have the
// /subscriptions/{s}/resourceGroups/{g}/providers/{p}/{type}/{name} shape.
var ErrMalformedResourceID = errors.New("malformed resource id")

// Error carries the raw id that failed to parse.
type Error struct {
	RawID  string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed resource id %q: %s", e.RawID, e.Reason)
	}
	return fmt.Sprintf("malformed resource id %q", e.RawID)
}

func (e *Error) Unwrap() error {
	return ErrMalformedResourceID
}

// The type group is greedy: nested resource types such as
// networkInterfaces/nic1/ipConfigurations collapse into one capture.
var armIDPattern = regexp.MustCompile(`^/(?i:subscriptions)/([^/]+)/(?i:resourceGroups)/([^/]+)/(?i:providers)/([^/]+)/(.+)/([^/]+)$`)

// ResourceIdentifier is a decoded ARM resource id.
type ResourceIdentifier struct {
	SubscriptionID    string
	ResourceGroup     string
	ProviderNamespace string
	ResourceType      string
	ResourceName      string
	RawID             string
}

// Parse decodes rawID. It fails rather than drop a segment: the decoded
// fields must re-join to the input.
func Parse(rawID string) (ResourceIdentifier, error) {
	m := armIDPattern.FindStringSubmatch(rawID)
	if m == nil {
		return ResourceIdentifier{}, &Error{RawID: rawID, Reason: "does not match the subscription/resourceGroup/provider/type/name shape"}
	}

	id := ResourceIdentifier{
		SubscriptionID:    m[1],
		ResourceGroup:     m[2],
		ProviderNamespace: m[3],
		ResourceType:      m[4],
		ResourceName:      m[5],
		RawID:             rawID,
	}

	for _, seg := range strings.Split(id.ResourceType, "/") {
		if seg == "" {
			return ResourceIdentifier{}, &Error{RawID: rawID, Reason: "empty resource type segment"}
		}
	}

	if !strings.EqualFold(id.String(), rawID) {
		return ResourceIdentifier{}, &Error{RawID: rawID, Reason: "decoded fields do not reproduce the id"}
	}

	return id, nil
}

// MustParse is Parse for ids known to be valid at compile time.
func MustParse(rawID string) ResourceIdentifier {
	id, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return id
}

// String re-joins the fields using the canonical keyword spellings.
func (r ResourceIdentifier) String() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s/%s",
		r.SubscriptionID,
		r.ResourceGroup,
		r.ProviderNamespace,
		r.ResourceType,
		r.ResourceName)
}

// TypeSegments returns the type names of a possibly nested resource type,
// skipping the parent resource names in between.
//
//	networkInterfaces                      -> [networkInterfaces]
//	networkInterfaces/nic1/ipConfigurations -> [networkInterfaces ipConfigurations]
func (r ResourceIdentifier) TypeSegments() []string {
	parts := strings.Split(r.ResourceType, "/")
	types := make([]string, 0, (len(parts)+1)/2)
	for i := 0; i < len(parts); i += 2 {
		types = append(types, parts[i])
	}
	return types
}

// IsNested reports whether the identifier names a child resource.
func (r ResourceIdentifier) IsNested() bool {
	return strings.Contains(r.ResourceType, "/")
}

// Label is the graph node label for the resource: the type segments
// joined with an underscore.
func (r ResourceIdentifier) Label() string {
	return strings.Join(r.TypeSegments(), "_")
}

// Parent returns the identifier of the enclosing resource of a nested
// resource. ok is false for top-level resources.
func (r ResourceIdentifier) Parent() (parent ResourceIdentifier, ok bool) {
	parts := strings.Split(r.ResourceType, "/")
	if len(parts) < 3 {
		return ResourceIdentifier{}, false
	}

	parent = ResourceIdentifier{
		SubscriptionID:    r.SubscriptionID,
		ResourceGroup:     r.ResourceGroup,
		ProviderNamespace: r.ProviderNamespace,
		ResourceType:      strings.Join(parts[:len(parts)-2], "/"),
		ResourceName:      parts[len(parts)-2],
	}
	parent.RawID = parent.String()
	return parent, true
}
