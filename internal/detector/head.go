package detector

import (
	"fmt"

	"github.com/deepscan/fakedetect/internal/errors"
)

const (
	// FakeThreshold is the probability above which an image is labelled fake.
	// A score equal to the threshold is real.
	FakeThreshold float32 = 0.5

	// FakeClassIndex is the column of the fake class in a two-class softmax output
	FakeClassIndex = 1
)

// Head is the interpreted classifier output, either SigmoidOutput or SoftmaxOutput
type Head interface {
	Verdict() Verdict
	isHead()
}

// SigmoidOutput is a single-unit head: Score is the probability of fake
type SigmoidOutput struct {
	Score float32
}

// SoftmaxOutput is a two-class head
type SoftmaxOutput struct {
	Real float32
	Fake float32
}

// Verdict implements Head
func (s SigmoidOutput) Verdict() Verdict { return sigmoidVerdict(s.Score) }

// Verdict implements Head
func (s SoftmaxOutput) Verdict() Verdict { return softmaxVerdict(s.Real, s.Fake) }

func (SigmoidOutput) isHead() {}
func (SoftmaxOutput) isHead() {}

func sigmoidVerdict(score float32) Verdict {
	return thresholdVerdict(score)
}

func softmaxVerdict(_, fake float32) Verdict {
	return thresholdVerdict(fake)
}

func thresholdVerdict(score float32) Verdict {
	if score > FakeThreshold {
		return Verdict{IsFake: true, Confidence: score}
	}
	return Verdict{IsFake: false, Confidence: 1 - score}
}

// InterpretOutput picks the head variant from the last output dimension:
// one column is a sigmoid, anything wider is read as a softmax with the fake
// class at FakeClassIndex. Only the first row of the batch is used.
func InterpretOutput(out Tensor) (Head, error) {
	if len(out.Shape) < 2 {
		return nil, shapeError(out, "expected a batch of predictions")
	}
	cols := out.Shape[len(out.Shape)-1]
	if cols == 0 || len(out.Data) < cols {
		return nil, shapeError(out, "empty prediction")
	}

	if cols == 1 {
		return SigmoidOutput{Score: out.Data[0]}, nil
	}
	if cols <= FakeClassIndex {
		return nil, shapeError(out, "too few classes")
	}
	return SoftmaxOutput{Real: out.Data[0], Fake: out.Data[FakeClassIndex]}, nil
}

func shapeError(out Tensor, reason string) error {
	return errors.New(fmt.Errorf("unexpected model output shape %v: %s", out.Shape, reason)).
		Category(errors.CategoryValidation).
		Context("output_shape", fmt.Sprint(out.Shape)).
		Build()
}
