package graph

import (
	"fmt"

	appErrors "nodeflow/internal/errors"
)

func nodeNotFoundError(id string) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("node not found: %s", id), nil)
}

func edgeNotFoundError(id string) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("edge not found: %s", id), nil)
}

func selfLoopError(id string) error {
	return appErrors.New(appErrors.CodeSelfLoop, fmt.Sprintf("cannot link node %s to itself", id), nil)
}

func danglingEdgeError(source, target string) error {
	return appErrors.New(appErrors.CodeDanglingEdge, fmt.Sprintf("link %s -> %s references a missing node", source, target), nil)
}

func invalidPositionError(id string) error {
	return appErrors.New(appErrors.CodeInvalidPosition, fmt.Sprintf("invalid position for node %s", id), nil)
}
