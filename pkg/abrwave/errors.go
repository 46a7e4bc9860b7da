package abrwave

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownFormat = errors.New("unknown input format")
)
