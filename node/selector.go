package node

import "github.com/dtnsim/dtnsim/bundle"

// Selector picks which of possibly several ducts to a neighbor a
// bundle should go out through (§4.G: "Selectors route a bundle
// chosen by neighbor manager to one of the multiple ducts to that
// neighbor"). The returned tag is looked up against whatever ducts
// were registered under that neighbor; an empty tag means "the
// default (and usually only) duct".
type Selector interface {
	SelectDuct(neighbor string, b *bundle.Bundle) string
}

// SingleDuctSelector is the default: every neighbor has exactly one
// duct, so there is nothing to select (DtnNode's default selector,
// which is a no-op when a node has one duct per neighbor).
type SingleDuctSelector struct{}

func (SingleDuctSelector) SelectDuct(string, *bundle.Bundle) string { return "" }

// CriticalitySelector picks among named duct tags by whether the
// bundle is critical, e.g. routing critical traffic over a
// low-latency band and bulk traffic over a high-capacity one.
type CriticalitySelector struct {
	CriticalTag string
	BulkTag     string
}

func (s CriticalitySelector) SelectDuct(_ string, b *bundle.Bundle) string {
	if b.Critical {
		return s.CriticalTag
	}
	return s.BulkTag
}

// DataTypeSelector picks a duct tag by the bundle's data type (e.g.
// routing telemetry over an X-band duct and imagery over an optical
// one), falling back to a default tag for unlisted data types.
type DataTypeSelector struct {
	ByDataType map[string]string
	Default    string
}

func (s DataTypeSelector) SelectDuct(_ string, b *bundle.Bundle) string {
	if tag, ok := s.ByDataType[b.DataType]; ok {
		return tag
	}
	return s.Default
}
