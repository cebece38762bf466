// Copyright 2026 The Resolvent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go compute backend.
package cpu

import (
	internalcpu "github.com/resolvent-ml/resolvent/internal/backend/cpu"
	"github.com/resolvent-ml/resolvent/tensor"
)

// Backend is the CPU backend: eager, pure Go implementations of every
// tensor operation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	sum := backend.Add(a, b)
func New() *Backend {
	return internalcpu.New()
}
