package storage

import "io"

// Storage persists evidence images for fired alerts.
type Storage interface {
	SaveEvidence(data []byte) (string, error)
	OpenFile(path string) (io.ReadSeekCloser, error)
	DeleteFile(path string) error
}
