package service

import "fmt"

// UploadError is returned when the provider rejects a store or cannot resolve the public URL
type UploadError struct {
	Key     string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("Failed to upload image: %s", e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// DeleteError is returned when the provider rejects a delete
type DeleteError struct {
	Key     string
	Message string
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("Failed to delete image: %s", e.Message)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

func newUploadError(key string, err error) *UploadError {
	return &UploadError{Key: key, Message: err.Error(), Err: err}
}

func newDeleteError(key string, err error) *DeleteError {
	return &DeleteError{Key: key, Message: err.Error(), Err: err}
}
