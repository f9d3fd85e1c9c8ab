package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidText       = errors.New("invalid text")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrInvalidShape      = errors.New("invalid shape")
	ErrInvalidColor      = errors.New("invalid color")
	ErrInvalidLaneID     = errors.New("invalid lane id")
	ErrInvalidHeight     = errors.New("invalid height")
	ErrInvalidConnection = errors.New("invalid connection")
)
