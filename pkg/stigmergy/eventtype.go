package stigmergy

import "strings"

// Port is the discrete capability tag attached to every daemon spec and most
// events (spec.md GLOSSARY: "purely an organizational tag, not a network
// port"). A typed enum per §9's "tag-string-based routing" redesign flag —
// the wire format stays a dotted string, but construction goes through here
// so a typo in a port tag is a compile error, not a silent routing miss.
type Port string

// Port tags. p0-p7 are the eight capability slots; Infra is used by
// infrastructure-level events (supervisor, anchor) that aren't tied to a
// single daemon's port.
const (
	PortP0    Port = "p0"
	PortP1    Port = "p1"
	PortP2    Port = "p2"
	PortP3    Port = "p3"
	PortP4    Port = "p4"
	PortP5    Port = "p5"
	PortP6    Port = "p6"
	PortP7    Port = "p7"
	PortInfra Port = "infra"
)

// System is the fixed top-level namespace segment for every event type.
const System = "hfo"

// TypeBuilder constructs dotted event-type strings of the form
// "<system>.<generation>.<port>.<component>.<action>" (§6.6). Changing any
// segment yields a different type string, which is a breaking change per
// spec — callers should construct types through one TypeBuilder per
// component rather than concatenating strings ad hoc.
type TypeBuilder struct {
	generation string
	port       Port
	component  string
}

// NewTypeBuilder returns a builder fixed to (generation, port, component).
// generation is the short tag from HFO_GENERATION (e.g. "gen91").
func NewTypeBuilder(generation string, port Port, component string) TypeBuilder {
	return TypeBuilder{generation: generation, port: port, component: component}
}

// Type returns the full dotted event type for action.
func (b TypeBuilder) Type(action string) string {
	return strings.Join([]string{System, b.generation, string(b.port), b.component, action}, ".")
}

// Prefix returns the dotted prefix shared by every type this builder
// produces, suitable for a query_by_pattern glob like Prefix()+".*".
func (b TypeBuilder) Prefix() string {
	return strings.Join([]string{System, b.generation, string(b.port), b.component}, ".")
}
