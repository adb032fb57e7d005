package library

import "errors"

// ErrElementNotFound is returned when an element id has no stored content.
var ErrElementNotFound = errors.New("library element not found")

// ErrInvalidElement is returned when an entry or its content cannot be stored.
var ErrInvalidElement = errors.New("invalid library element")
