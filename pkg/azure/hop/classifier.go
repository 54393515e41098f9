// Package hop classifies the resource identifiers reported for
// Network Watcher connectivity-check hops.
package hop

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// Internet is the sentinel resource id, type and name of hops that
	// leave the monitored network.
	Internet = "Internet"

	TypeNetworkInterface      = "networkInterfaces"
	TypeVirtualNetworkGateway = "virtualNetworkGateways"
)

var ErrUnrecognizedHopResourceID = errors.New("unrecognized hop resource id")

// UnrecognizedError carries the raw hop resource id no rule matched.
type UnrecognizedError struct {
	RawID string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized hop resource id %q", e.RawID)
}

func (e *UnrecognizedError) Unwrap() error {
	return ErrUnrecognizedHopResourceID
}

// Classification is the canonical identity of a hop.
type Classification struct {
	Type string
	Name string
	ID   string
}

// IsInternet reports whether c is the Internet sentinel.
func (c Classification) IsInternet() bool {
	return c.Type == Internet
}

// Rule maps a resource-id pattern to a canonical resource type.
//
// Raw is matched against the resource id reported on a hop. Canonical is
// matched against the truncated id stored in a resolution table. Both
// patterns must capture the canonical id as group 1 and the resource name
// as group 2.
type Rule struct {
	Type      string
	Raw       *regexp.Regexp
	Canonical *regexp.Regexp

	// LinkSource marks types that may originate a ConnectedTo link.
	LinkSource bool
}

func (r Rule) extract(re *regexp.Regexp, id string) (Classification, bool) {
	m := re.FindStringSubmatch(id)
	if m == nil {
		return Classification{}, false
	}
	return Classification{Type: r.Type, Name: m[2], ID: m[1]}, true
}

// Rules is the ordered rule table; the first match wins. The Internet
// sentinel is checked before any rule.
var Rules = []Rule{
	{
		Type:       TypeNetworkInterface,
		Raw:        regexp.MustCompile(`^(.*/(?i:providers/Microsoft\.Network/networkInterfaces)/([^/]+))/(?i:ipConfigurations)/.*$`),
		Canonical:  regexp.MustCompile(`^(.*/(?i:providers/Microsoft\.Network/networkInterfaces)/([^/]+))$`),
		LinkSource: true,
	},
	{
		Type:       TypeVirtualNetworkGateway,
		Raw:        regexp.MustCompile(`^(.*/(?i:providers/Microsoft\.Network/virtualNetworkGateways)/([^/]+))$`),
		Canonical:  regexp.MustCompile(`^(.*/(?i:providers/Microsoft\.Network/virtualNetworkGateways)/([^/]+))$`),
		LinkSource: true,
	},
}

var internet = Classification{Type: Internet, Name: Internet, ID: Internet}

// Classify determines the canonical type, name and id of a hop resource id.
func Classify(raw string) (Classification, error) {
	if raw == Internet {
		return internet, nil
	}

	for _, rule := range Rules {
		if c, ok := rule.extract(rule.Raw, raw); ok {
			return c, nil
		}
	}

	return Classification{}, &UnrecognizedError{RawID: raw}
}

// ClassifyCanonical matches an id already reduced by Classify.
func ClassifyCanonical(id string) (Classification, bool) {
	if id == Internet {
		return internet, true
	}

	for _, rule := range Rules {
		if c, ok := rule.extract(rule.Canonical, id); ok {
			return c, true
		}
	}

	return Classification{}, false
}

// IsLinkSource reports whether hops of this classification may originate
// a ConnectedTo relationship.
func IsLinkSource(c Classification) bool {
	for _, rule := range Rules {
		if rule.Type == c.Type {
			return rule.LinkSource
		}
	}
	return false
}

// Types lists the node labels a connectivity check can produce.
func Types() []string {
	types := []string{Internet}
	for _, rule := range Rules {
		types = append(types, rule.Type)
	}
	return types
}
