package domain

import "strings"

// Handle is one of the four attachment points on a card.
type Handle string

const (
	HandleLeft   Handle = "left"
	HandleRight  Handle = "right"
	HandleTop    Handle = "top"
	HandleBottom Handle = "bottom"
)

var validHandles = map[Handle]struct{}{
	HandleLeft:   {},
	HandleRight:  {},
	HandleTop:    {},
	HandleBottom: {},
}

// ParseHandle accepts a bare direction ("left") or the prefixed wire form used
// in persisted graphs ("s-left", "t-left").
func ParseHandle(raw string) (Handle, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	trimmed = strings.TrimPrefix(trimmed, "s-")
	trimmed = strings.TrimPrefix(trimmed, "t-")
	h := Handle(trimmed)
	if _, ok := validHandles[h]; !ok {
		return "", invalidHandleError(raw)
	}
	return h, nil
}

// Validate ensures the handle is one of the four directions.
func (h Handle) Validate() error {
	if _, ok := validHandles[h]; !ok {
		return invalidHandleError(string(h))
	}
	return nil
}

// SourceID is the wire identifier of the handle used as an edge source.
func (h Handle) SourceID() string {
	return "s-" + string(h)
}

// TargetID is the wire identifier of the handle used as an edge target.
func (h Handle) TargetID() string {
	return "t-" + string(h)
}
