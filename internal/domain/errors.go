package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrHistoryCorruption  = errors.New("corrupt history entry")
	ErrHistoryEmpty       = errors.New("history is empty")
	ErrPartitionExhausted = errors.New("partition attempts exhausted")
	ErrProvider           = errors.New("provider call failed")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrPersonNotFound     = errors.New("person not found")
)

type PartitionExhaustedError struct {
	Attempts  int
	Evictions int
}

func (e *PartitionExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d shuffle attempts and %d evictions", ErrPartitionExhausted, e.Attempts, e.Evictions)
}

func (e *PartitionExhaustedError) Is(target error) bool {
	return target == ErrPartitionExhausted
}
