// Copyright 2026 The Resolvent Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation for the solver
// library.
//
// The package implements tape-based differentiation in both modes:
// reverse (gradients) and forward (tangents). It wraps any backend and
// records operations onto a gradient tape; solves run under such a
// backend record a single implicit-function-theorem rule instead of
// their internal iterations.
//
// Example:
//
//	base := cpu.New()
//	backend := autodiff.New(base)
//	backend.Tape().StartRecording()
//
//	y := backend.Mul(x, x) // recorded
//
//	seed := tensor.Ones(y.Shape(), y.DType())
//	grads := backend.Tape().Backward(y, seed, backend)
//	_ = grads[x] // dy/dx = 2x
package autodiff

import (
	"github.com/resolvent-ml/resolvent/internal/autodiff"
	"github.com/resolvent-ml/resolvent/internal/autodiff/ops"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// Backend is the recording backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a recording backend wrapping the given backend.
// Recording starts disabled; enable it with Tape().StartRecording().
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// Recorder is satisfied by backends that record onto a tape. Code that
// works with a plain tensor.Backend can type-assert against it to
// detect an active recording or to register custom derivative rules.
type Recorder = autodiff.Recorder

// Operation is one differentiable step on the tape. Implement it to
// attach a custom derivative rule to a computation the tape would
// otherwise trace elementwise, then Record it on the tape.
type Operation = ops.Operation
