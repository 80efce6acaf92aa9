// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "fmt"

// Flavor is the closed set of content types a blurb can take. The flavor
// decides where a blurb sits in its hierarchy and what flavor its children
// get when something is posted beneath it.
type Flavor string

const (
	FlavorBlog        Flavor = "FLAVOR.BLOG"
	FlavorBlogPost    Flavor = "FLAVOR.BLOG_POST"
	FlavorBlogComment Flavor = "FLAVOR.BLOG_COMMENT"

	FlavorForum      Flavor = "FLAVOR.FORUM"
	FlavorForumTopic Flavor = "FLAVOR.FORUM_TOPIC"
	FlavorForumPost  Flavor = "FLAVOR.FORUM_POST"

	FlavorWiki     Flavor = "FLAVOR.WIKI"
	FlavorWikiNode Flavor = "FLAVOR.WIKI_NODE"
)

// Flavors lists every known flavor in hierarchy order.
var Flavors = []Flavor{
	FlavorBlog, FlavorBlogPost, FlavorBlogComment,
	FlavorForum, FlavorForumTopic, FlavorForumPost,
	FlavorWiki, FlavorWikiNode,
}

// Child returns the flavor a blurb posted under f must have. The second
// return value is false when f does not accept children. Comments, forum
// posts and wiki nodes map to themselves so their subtrees can grow
// without bound.
func (f Flavor) Child() (Flavor, bool) {
	switch f {
	case FlavorBlog:
		return FlavorBlogPost, true
	case FlavorBlogPost, FlavorBlogComment:
		return FlavorBlogComment, true
	case FlavorForum:
		return FlavorForumTopic, true
	case FlavorForumTopic, FlavorForumPost:
		return FlavorForumPost, true
	case FlavorWiki, FlavorWikiNode:
		return FlavorWikiNode, true
	}
	return "", false
}

// Valid reports whether f is one of the known flavors.
func (f Flavor) Valid() bool {
	switch f {
	case FlavorBlog, FlavorBlogPost, FlavorBlogComment,
		FlavorForum, FlavorForumTopic, FlavorForumPost,
		FlavorWiki, FlavorWikiNode:
		return true
	}
	return false
}

// Kind returns a short human label for the flavor ("blog", "comment", ...),
// used when naming the group role of a freshly published top-level blurb.
func (f Flavor) Kind() string {
	switch f {
	case FlavorBlog:
		return "blog"
	case FlavorBlogPost:
		return "post"
	case FlavorBlogComment:
		return "comment"
	case FlavorForum:
		return "forum"
	case FlavorForumTopic:
		return "topic"
	case FlavorForumPost:
		return "forum post"
	case FlavorWiki:
		return "wiki"
	case FlavorWikiNode:
		return "wiki node"
	}
	return "blurb"
}

// ParseFlavor converts a stored or user-supplied string into a Flavor.
func ParseFlavor(s string) (Flavor, error) {
	f := Flavor(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown flavor %q", s)
	}
	return f, nil
}
