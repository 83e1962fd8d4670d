package domain

var (
	ErrNotFound    = errString("not found")
	ErrValidation  = errString("validation failed")
	ErrJobFinished = errString("job already finished")
)

type errString string

func (e errString) Error() string { return string(e) }
