package domain

import (
	"fmt"

	appErrors "nodeflow/internal/errors"
)

func invalidStatusError(status string) error {
	return appErrors.New(appErrors.CodeInvalidStatus, fmt.Sprintf("invalid status: %s", status), nil)
}

func invalidHandleError(handle string) error {
	return appErrors.New(appErrors.CodeInvalidHandle, fmt.Sprintf("invalid handle: %s", handle), nil)
}
