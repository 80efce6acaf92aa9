// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "github.com/google/uuid"

// BlurbFilter is the predicate for blurb queries. Zero-valued fields are
// ignored; TopLevel restricts to blurbs without a parent and takes
// precedence over ParentID.
type BlurbFilter struct {
	ParentID *uuid.UUID
	TopLevel bool
	Flavor   Flavor
	AuthorID *uuid.UUID
	Limit    uint64
}
