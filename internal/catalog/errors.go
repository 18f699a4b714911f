package catalog

import "errors"

var (
	// ErrMissingField indicates a source record lacks a field the pipeline keys on.
	ErrMissingField = errors.New("catalog: missing required field")
	// ErrUnknownAuthor indicates a reference to an author that was never written.
	ErrUnknownAuthor = errors.New("catalog: unknown author")
	// ErrUnknownBook indicates a reference to a book that was never written.
	ErrUnknownBook = errors.New("catalog: unknown book")
	// ErrUnknownBranch indicates a reference to a branch that was never written.
	ErrUnknownBranch = errors.New("catalog: unknown branch")
	// ErrInsufficientBranches indicates fewer branches than one primary plus the supplements.
	ErrInsufficientBranches = errors.New("catalog: insufficient branches")
	// ErrEmptyBookPopulation indicates activity was requested with no books to sample.
	ErrEmptyBookPopulation = errors.New("catalog: empty book population")
	// ErrBookWithoutBranches indicates a sampled book has no branch to borrow from.
	ErrBookWithoutBranches = errors.New("catalog: book has no branches")
	// ErrUnknownCity indicates a user city outside the geolocation table.
	ErrUnknownCity = errors.New("catalog: unknown city")
)

// ServiceError tags a failure with the operation and reason that produced it.
type ServiceError struct {
	code string
	err  error
}

// NewServiceError builds a ServiceError coded "<operation>.<reason>".
func NewServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: operation + "." + reason, err: cause}
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return e.code + ": " + e.err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the "<operation>.<reason>" identifier.
func (e *ServiceError) Code() string {
	return e.code
}
