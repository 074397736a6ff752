package relay

import "fmt"

// SizeExceededError is returned when the source reports a file larger than
// the configured cap. Detected before any download traffic is spent.
type SizeExceededError struct {
	Size int64
	Max  int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("file size %d exceeds limit %d", e.Size, e.Max)
}

// MetadataError is returned when the source platform refuses or fails the
// file-metadata lookup.
type MetadataError struct {
	Description string
	Err         error
}

func (e *MetadataError) Error() string {
	if e.Description != "" {
		return "file metadata lookup failed: " + e.Description
	}
	return fmt.Sprintf("file metadata lookup failed: %v", e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// DownloadError is returned when fetching the file bytes from the source
// platform fails with a non-ok status or a timeout.
type DownloadError struct {
	Status string
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != "" {
		return "file download failed: " + e.Status
	}
	return fmt.Sprintf("file download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
