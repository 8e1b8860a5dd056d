package core

import (
	"errors"
)

var (
	// ErrReflection means a shader binary could not be parsed or declares a
	// resource kind the reflection layer does not support.
	ErrReflection = errors.New("shader reflection failed")
	// ErrReflectionConflict means the same resource name is declared with a
	// different type, set, binding or array size across stages.
	ErrReflectionConflict = errors.New("shader resource declared inconsistently across stages")
	// ErrLayoutCreation means the device rejected a descriptor set layout or
	// pipeline layout configuration.
	ErrLayoutCreation = errors.New("layout creation rejected by device")
	// ErrPoolExhaustion means a native descriptor set allocation failed even
	// though the pool accounting showed free capacity.
	ErrPoolExhaustion = errors.New("descriptor pool exhausted")
	ErrUnknown        = errors.New("unknown")
)
