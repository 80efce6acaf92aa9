// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"slices"
	"strings"
)

// Capability names a bundle of operations a role may perform on a shared
// blurb. Capabilities nest: every Commenter is also a Viewer and every
// Author is also a Commenter.
type Capability string

const (
	// CapViewer may read title, body and metadata.
	CapViewer Capability = "IViewer"
	// CapCommenter may additionally post children.
	CapCommenter Capability = "ICommenter"
	// CapAuthor may additionally edit.
	CapAuthor Capability = "IAuthor"
)

// rank orders capabilities along the lattice. Zero means unknown.
func (c Capability) rank() int {
	switch c {
	case CapViewer:
		return 1
	case CapCommenter:
		return 2
	case CapAuthor:
		return 3
	}
	return 0
}

// Includes reports whether holding c also grants other.
func (c Capability) Includes(other Capability) bool {
	return c.rank() > 0 && other.rank() > 0 && c.rank() >= other.rank()
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	return c.rank() > 0
}

// CapabilitySet is the set of capability tags attached to a grant or share.
// It is kept sorted and free of duplicates.
type CapabilitySet []Capability

// NewCapabilitySet builds a normalized set from the given tags.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, 0, len(caps))
	for _, c := range caps {
		if !slices.Contains(set, c) {
			set = append(set, c)
		}
	}
	slices.SortFunc(set, func(a, b Capability) int { return a.rank() - b.rank() })
	return set
}

// Allows reports whether any tag in the set grants c.
func (s CapabilitySet) Allows(c Capability) bool {
	for _, have := range s {
		if have.Includes(c) {
			return true
		}
	}
	return false
}

// Union returns a normalized set holding the tags of both sets.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	all := make([]Capability, 0, len(s)+len(other))
	all = append(all, s...)
	all = append(all, other...)
	return NewCapabilitySet(all...)
}

// Strings returns the tags as plain strings.
func (s CapabilitySet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// String encodes the set as a comma-separated list, the storage format.
func (s CapabilitySet) String() string {
	return strings.Join(s.Strings(), ",")
}

// ParseCapabilitySet decodes the comma-separated storage format.
func ParseCapabilitySet(s string) (CapabilitySet, error) {
	if strings.TrimSpace(s) == "" {
		return CapabilitySet{}, nil
	}
	var caps []Capability
	for _, part := range strings.Split(s, ",") {
		c := Capability(strings.TrimSpace(part))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown capability %q", part)
		}
		caps = append(caps, c)
	}
	return NewCapabilitySet(caps...), nil
}
