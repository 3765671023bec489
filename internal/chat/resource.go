package chat

import (
	"fmt"
	"strings"
)

// NormalizeSpace accepts either a bare space id or a fully qualified
// spaces/{id} resource name and returns the qualified form.
func NormalizeSpace(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty space id", ErrInvalidArgument)
	}
	if strings.HasPrefix(id, "spaces/") {
		rest := strings.TrimPrefix(id, "spaces/")
		if rest == "" || strings.Contains(rest, "/") {
			return "", fmt.Errorf("%w: malformed space name %q", ErrInvalidArgument, id)
		}
		return id, nil
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: malformed space id %q", ErrInvalidArgument, id)
	}
	return "spaces/" + id, nil
}

// ValidateMessageName requires the fully qualified spaces/{S}/messages/{M}
// form. Bare ids are rejected: a message id is meaningless without its space.
func ValidateMessageName(name string) error {
	parts := strings.Split(name, "/")
	if len(parts) != 4 || parts[0] != "spaces" || parts[2] != "messages" ||
		parts[1] == "" || parts[3] == "" {
		return fmt.Errorf("%w: message name must be spaces/{space}/messages/{message}, got %q",
			ErrInvalidArgument, name)
	}
	return nil
}

// SpaceOfMessage extracts the containing spaces/{S} name from a qualified
// message name. The name must already be validated.
func SpaceOfMessage(name string) string {
	parts := strings.SplitN(name, "/messages/", 2)
	return parts[0]
}

// NormalizeUser reduces any of the three equivalent user reference forms
// (users/{U}, people/{U}, raw {U}) to the bare id used for profile lookup.
func NormalizeUser(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "users/")
	ref = strings.TrimPrefix(ref, "people/")
	if ref == "" || strings.Contains(ref, "/") {
		return "", fmt.Errorf("%w: malformed user reference", ErrInvalidArgument)
	}
	return ref, nil
}
