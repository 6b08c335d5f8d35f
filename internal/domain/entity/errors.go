package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidItem matches every *ValidationError returned by SourceItem.Validate.
var ErrInvalidItem = errors.New("invalid source item")

// ValidationError names the SourceItem field that made the item unusable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidItem
}
