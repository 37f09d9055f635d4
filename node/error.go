package node

import (
	"errors"
	"fmt"
)

var (
	// ErrChannels is returned when a channel count is out of range.
	ErrChannels = errors.New("channel count out of range")
	// ErrOption is returned when a node option is out of range.
	ErrOption = errors.New("invalid node option")
)

func optionError(kind, field string, value interface{}) error {
	return fmt.Errorf("%s: %w: %s = %v", kind, ErrOption, field, value)
}
