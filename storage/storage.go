package storage

import "errors"

// ErrNotExist is returned by ReadFile when the object is missing.
// Callers treat it as "no prior data" rather than a failure.
var ErrNotExist = errors.New("object does not exist")

type Storage interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Remove(name string) error
	Walk(root string, fn func(path string, err error) error) error
}
