package service

// NotFoundError is returned when the requested record(s) or page do not
// exist in the store.
type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string {
	return e.Detail
}

// InvalidRecordError is returned when a record that must be fully specified
// is missing one or more required fields.
type InvalidRecordError struct {
	Detail string
}

func (e *InvalidRecordError) Error() string {
	return e.Detail
}

// DuplicateRecordError is returned when one or more ids in a bulk insert
// already exist. The non-conflicting records of the same batch have already
// been persisted by the time this error is returned.
type DuplicateRecordError struct {
	Detail string
	IDs    []int
}

func (e *DuplicateRecordError) Error() string {
	return e.Detail
}
