package domain

import (
	"errors"
	"fmt"
)

var ErrEmptyText = errors.New("complaint text is empty")

type EnumError struct {
	Field string
	Value string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%s: unsupported value %q", e.Field, e.Value)
}
