// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Blurb is a unit of user-written text: a blog, a post, a comment, a forum
// topic, a wiki node. What it is displayed as is decided by its Flavor.
// ParentID is a weak back-reference; blurbs form a forest.
type Blurb struct {
	ID             uuid.UUID  `json:"id"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	Flavor         Flavor     `json:"flavor"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	Hits           int64      `json:"hits"`
	AuthorID       uuid.UUID  `json:"author_id"`
	DateCreated    time.Time  `json:"date_created"`
	DateLastEdited time.Time  `json:"date_last_edited"`
}

// IsTopLevel returns true if the blurb has no parent.
func (b *Blurb) IsTopLevel() bool {
	return b.ParentID == nil
}

// PastBlurb is an immutable snapshot of a blurb taken right before an edit.
// DateEdited is the last-edited timestamp the edit superseded.
type PastBlurb struct {
	ID         uuid.UUID `json:"id"`
	BlurbID    uuid.UUID `json:"blurb_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Hits       int64     `json:"hits"`
	AuthorID   uuid.UUID `json:"author_id"`
	DateEdited time.Time `json:"date_edited"`
	CreatedAt  time.Time `json:"created_at"`
}

// MetaBlurb associates a free-form key/value pair with a blurb ("Mood",
// "Music", "Current Weather"). The engine never interprets it.
type MetaBlurb struct {
	ID      uuid.UUID `json:"id"`
	BlurbID uuid.UUID `json:"blurb_id"`
	Key     string    `json:"key"`
	Value   string    `json:"value"`
}
