// Package entity defines the typed identifiers shared by users, groups and
// events across the backend.
package entity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Type is the tag in front of the first '#' of an identifier.
type Type string

// Recognized entity types. The constants hold the wire tags, so a user ID
// is written "USR#alice123", not "USER#alice123".
const (
	Group Type = "GRP"
	User  Type = "USR"
	Event Type = "EVT"
)

// Separator splits an identifier into its type tag and local ID.
const Separator = "#"

// maxIDLength bounds the whole identifier, tag and separator included.
const maxIDLength = 256

// idRegex matches <TAG>#<localID>. The local ID may contain further '#'
// characters; only the first one separates the tag. Separators (\p{Z}),
// control and format characters (\p{C}) and '/' are excluded.
var idRegex = regexp.MustCompile(`^[A-Z]{2,8}#[^\s\p{Z}\p{C}/]+$`)

// Types returns the closed set of recognized entity types.
func Types() []Type {
	return []Type{Group, User, Event}
}

// Known reports whether t is one of the recognized entity types.
func (t Type) Known() bool {
	switch t {
	case Group, User, Event:
		return true
	}
	return false
}

// Valid reports whether id is a well-formed identifier. It does not check
// that the type tag is a recognized one.
func Valid(id string) bool {
	// The regexp reads invalid bytes as U+FFFD, which it would accept.
	return len(id) <= maxIDLength && utf8.ValidString(id) && idRegex.MatchString(id)
}

// Split returns the type tag and local ID of id. ok is false when id has no
// separator.
func Split(id string) (t Type, localID string, ok bool) {
	tag, local, found := strings.Cut(id, Separator)
	if !found {
		return "", "", false
	}
	return Type(tag), local, true
}
