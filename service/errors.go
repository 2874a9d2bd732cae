package service

import (
	"errors"
	"fmt"
)

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrAccessCodeInvalid = errors.New("access code is invalid, expired, revoked or used up")
	ErrBlobExists        = errors.New("blob already exists")
	ErrBlobNotFound      = errors.New("blob not found")
	ErrNotFillable       = errors.New("contract has no fillable pdf")
	ErrNoFile            = errors.New("contract has no file")
	ErrSessionNotFound   = errors.New("editing session not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// StorageUploadError aborts a publish before the contract pointer is touched.
type StorageUploadError struct {
	Key string
	Err error
}

func (e *StorageUploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *StorageUploadError) Unwrap() error { return e.Err }

// PointerUpdateError means the new blob was stored but the contract still
// points at its previous file. OrphanKey names the unreferenced blob.
type PointerUpdateError struct {
	ContractID string
	OrphanKey  string
	Err        error
}

func (e *PointerUpdateError) Error() string {
	return fmt.Sprintf("update file pointer of contract %s (orphaned blob %s): %v", e.ContractID, e.OrphanKey, e.Err)
}

func (e *PointerUpdateError) Unwrap() error { return e.Err }

// Retryable reports whether err is a storage or pointer failure the caller may retry.
func Retryable(err error) bool {
	var upload *StorageUploadError
	var pointer *PointerUpdateError
	return errors.As(err, &upload) || errors.As(err, &pointer)
}
