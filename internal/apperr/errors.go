// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr holds errors shared by both storage backends so callers
// can match them without knowing which backend is in use.
package apperr

import "errors"

// ErrAlreadyExists is returned when a write hits a uniqueness constraint.
var ErrAlreadyExists = errors.New("already exists")
