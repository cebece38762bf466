package autodiff

import (
	"github.com/resolvent-ml/resolvent/internal/autodiff/ops"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// GradientTape records operations during the forward pass and replays
// them for differentiation: in reverse order for gradients (reverse
// mode) and in execution order for tangents (forward mode).
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{operations: make([]ops.Operation, 0, 64)}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() { t.recording = true }

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() { t.recording = false }

// IsRecording reports whether the tape is currently recording.
func (t *GradientTape) IsRecording() bool { return t.recording }

// Record adds an operation to the tape if recording is enabled.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear resets the tape; the recording flag is preserved.
func (t *GradientTape) Clear() { t.operations = t.operations[:0] }

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int { return len(t.operations) }

// mute disables recording for the duration of a differentiation sweep
// so the sweep's own arithmetic is not re-recorded.
func (t *GradientTape) mute() func() {
	was := t.recording
	t.recording = false
	return func() { t.recording = was }
}

// Backward walks the tape in reverse from the given output, seeded
// with outputGrad, and returns accumulated gradients per input tensor.
func (t *GradientTape) Backward(output, outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	defer t.mute()()

	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	grads[output] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(outGrad, backend)
		inputs := op.Inputs()
		for j, input := range inputs {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}
	return grads
}

// JVP walks the tape in execution order propagating the seed tangents
// forward, returning the tangent of every tensor reached. Operations
// none of whose inputs carry a tangent are skipped (their tangent is
// identically zero).
func (t *GradientTape) JVP(seeds map[*tensor.RawTensor]*tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	defer t.mute()()

	tangents := make(map[*tensor.RawTensor]*tensor.RawTensor, len(seeds))
	for k, v := range seeds {
		tangents[k] = v
	}

	for _, op := range t.operations {
		inputs := op.Inputs()
		aligned := make([]*tensor.RawTensor, len(inputs))
		any := false
		for j, input := range inputs {
			if tan, ok := tangents[input]; ok {
				aligned[j] = tan
				any = true
			}
		}
		if !any {
			continue
		}
		tangents[op.Output()] = op.Pushforward(aligned, backend)
	}
	return tangents
}
