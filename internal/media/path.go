package media

import (
	"fmt"
	"strings"

	"github.com/gathr/service/internal/entity"
)

const (
	picturesSegment = "pictures"
	profileName     = "profile"
)

// folders maps each entity type that may own media to its top-level folder.
// Supporting a new owner type is a new row here.
var folders = map[entity.Type]string{
	entity.Group: "groups",
	entity.User:  "users",
	entity.Event: "events",
}

// Folder returns the storage folder for t.
func Folder(t entity.Type) (string, bool) {
	f, ok := folders[t]
	return f, ok
}

// ProfileKey returns the storage key of the profile image of id:
// <folder>/pictures/<id>/profile. The key carries no extension; the content
// type travels as object metadata.
func ProfileKey(id string) (string, error) {
	t, _, ok := entity.Split(id)
	if !ok {
		return "", fmt.Errorf("%w: invalid entity id %q", ErrMalformedInput, id)
	}
	if !t.Known() {
		return "", fmt.Errorf("%w: unknown entity type %q (id %q)", ErrMalformedInput, t, id)
	}
	folder, ok := folders[t]
	if !ok {
		return "", fmt.Errorf("%w: entity type %q cannot own media (id %q)", ErrMalformedInput, t, id)
	}
	return strings.Join([]string{folder, picturesSegment, id, profileName}, "/"), nil
}

// ParseProfileKey is the inverse of ProfileKey. It rejects any key that
// ProfileKey could not have produced.
func ParseProfileKey(key string) (string, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[1] != picturesSegment || parts[3] != profileName {
		return "", fmt.Errorf("%w: %q is not a profile image key", ErrMalformedInput, key)
	}

	id := parts[2]
	if !entity.Valid(id) {
		return "", fmt.Errorf("%w: invalid entity id in key %q", ErrMalformedInput, key)
	}
	want, err := ProfileKey(id)
	if err != nil {
		return "", err
	}
	if want != key {
		return "", fmt.Errorf("%w: key %q is filed under the wrong folder", ErrMalformedInput, key)
	}
	return id, nil
}
