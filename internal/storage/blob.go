package storage

import "io"

// BlobStore holds chapter documentation files (PDFs). Keys are assigned
// by the content admin on upload and referenced from chapters.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
