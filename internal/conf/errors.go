package conf

import (
	"errors"

	"github.com/dshills/conftree/internal/conf/opt"
)

var (
	// ErrUnknownOption indicates the name resolved to no entry.
	ErrUnknownOption = errors.New("unknown option")

	// ErrMissingParam indicates the option requires a parameter and none was
	// given.
	ErrMissingParam = errors.New("option requires parameter")

	// ErrDisallowParam indicates a parameter was given where none is
	// accepted, such as after a "no-" prefix.
	ErrDisallowParam = errors.New("option takes no parameter")

	// ErrInvalidValue indicates the value was rejected, either by the
	// option's type or by a flag gate (fixed option changed at runtime,
	// no-config option set from a file).
	ErrInvalidValue = opt.ErrInvalidValue

	// ErrOptionRemoved indicates the option exists only as a removal tombstone.
	ErrOptionRemoved = errors.New("option was removed")

	// ErrExit reports that the option asked the host to print something and
	// stop, like "list-options" or "profile=help". It is a request, not a
	// failure.
	ErrExit = errors.New("exit requested")
)
