//go:build js && wasm
// +build js,wasm

package abrwave

import "errors"

// NewSQLiteStorage is unavailable in the browser; pass WithStorage instead.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return nil, errors.New("sqlite storage is not available in js/wasm builds")
}
