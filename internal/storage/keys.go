package storage

import "strings"

const (
	// DefaultNamespace prefixes every key written by the app.
	DefaultNamespace = "nodeflow"
	// GuestScope is used when no user scope is configured.
	GuestScope = "guest"
)

// Scope returns the user scope, falling back to GuestScope when blank.
func Scope(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		return GuestScope
	}
	return user
}

func namespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

// GraphKey is the key holding the serialized graph of one project.
func GraphKey(ns, user, projectID string) string {
	return namespace(ns) + ":graph:" + Scope(user) + ":" + projectID
}

// ProjectsKey is the key holding the project list of a user scope.
func ProjectsKey(ns, user string) string {
	return namespace(ns) + ":projects:" + Scope(user)
}
