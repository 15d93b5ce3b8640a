package publisher

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// ProviderOperationFailed covers every provider call failing for a reason
	// other than the launch template already existing.
	ProviderOperationFailed Kind = iota + 1
	// Timeout means the image did not become available in time.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case ProviderOperationFailed:
		return "ProviderOperationFailed"
	case Timeout:
		return "Timeout"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const (
	OpCreateImage           = "create image"
	OpWaitImage             = "wait for image"
	OpCreateTemplate        = "create launch template"
	OpCreateTemplateVersion = "create launch template version"
	OpSetDefaultVersion     = "set default launch template version"
)

// Error aborts a publish run. Termination and instance refresh failures never
// surface as an Error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

func IsTimeout(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Timeout
}
