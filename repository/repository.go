// Package repository stores identities and certificates in MongoDB.
package repository

import (
	"errors"

	"github.com/quickcert/certbackend/utils"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// wrapWrite turns a duplicate-key write error into ErrDuplicateKey.
func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	if utils.IsDuplicateKey(err) {
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}
