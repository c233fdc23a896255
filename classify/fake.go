package classify

import "context"

// FakeClassifier is a test double returning a fixed result or error.
type FakeClassifier struct {
	Result *Result
	Err    error
	Calls  int
}

func (f *FakeClassifier) Classify(_ context.Context, _ string) (*Result, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Result, nil
}
