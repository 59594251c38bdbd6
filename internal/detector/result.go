package detector

// Verdict is a successful classification
type Verdict struct {
	IsFake bool
	// Confidence is the probability mass of the predicted class, in [0,1]
	Confidence float32
}

// Result is the outcome of one prediction: exactly one of Verdict and Err is set.
type Result struct {
	Verdict *Verdict
	Err     error
}

// Success wraps a verdict
func Success(v Verdict) Result {
	return Result{Verdict: &v}
}

// Failure wraps a prediction error
func Failure(err error) Result {
	return Result{Err: err}
}

// OK reports whether the result carries a verdict
func (r Result) OK() bool {
	return r.Err == nil && r.Verdict != nil
}

// ErrorMessage returns the text reported to the caller for a failed prediction.
func (r Result) ErrorMessage() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Verdict == nil:
		return "no prediction"
	default:
		return ""
	}
}
