// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blurb

import "errors"

var (
	// ErrUnpostableFlavor is returned when posting under a blurb whose
	// flavor accepts no children.
	ErrUnpostableFlavor = errors.New("flavor does not accept children")

	// ErrMissingAuthor is returned when a blurb would be written without
	// an author role.
	ErrMissingAuthor = errors.New("author role is required")

	// ErrNotFound is returned when a referenced blurb does not exist.
	ErrNotFound = errors.New("blurb not found")

	// ErrAncestorCycle is returned when the parent chain of a blurb loops
	// back on itself.
	ErrAncestorCycle = errors.New("ancestor chain contains a cycle")

	// ErrUnknownFlavor is returned for flavors outside the closed set.
	ErrUnknownFlavor = errors.New("unknown flavor")

	// ErrInvalidGrant is returned when a permission record names no
	// capabilities or unknown ones.
	ErrInvalidGrant = errors.New("invalid capability grant")
)
