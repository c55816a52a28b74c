package service

import (
	"fmt"
	"slices"
	"strconv"
)

// DefaultMaxSizeMB is the upload limit applied when the caller does not pass one
const DefaultMaxSizeMB = 5

// InvalidTypeMessage is the validation error for a MIME type outside the allow-list
const InvalidTypeMessage = "Invalid file type. Please upload JPG, PNG, GIF, or WebP images."

// AllowedImageTypes lists the declared MIME types accepted for upload
var AllowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

// File is a candidate image as declared by the caller
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// ValidationResult reports whether a file may be uploaded
type ValidationResult struct {
	Valid bool
	Error string
}

// ValidateImage checks the declared MIME type against the allow-list and the size
// against maxSizeMB megabytes, inclusive. It does not look at the payload.
func ValidateImage(file File, maxSizeMB float64) ValidationResult {
	if !slices.Contains(AllowedImageTypes, file.ContentType) {
		return ValidationResult{Error: InvalidTypeMessage}
	}

	maxSizeBytes := maxSizeMB * 1024 * 1024
	if float64(file.Size) > maxSizeBytes {
		return ValidationResult{
			Error: fmt.Sprintf("File size exceeds %sMB limit.", strconv.FormatFloat(maxSizeMB, 'f', -1, 64)),
		}
	}

	return ValidationResult{Valid: true}
}
