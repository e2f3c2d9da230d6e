package greeter

import "context"

// Submission is one greet call started by FormGreeter.Submit.
type Submission struct {
	// Name is the value read from the name input, unmodified.
	Name string

	done     chan struct{}
	greeting string
	err      error
}

func newSubmission(name string) *Submission {
	return &Submission{
		Name: name,
		done: make(chan struct{}),
	}
}

func (s *Submission) resolve(greeting string, err error) {
	s.greeting = greeting
	s.err = err
	close(s.done)
}

// Done is closed once the greet call has resolved and the view was updated.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the greet call resolves and returns its result.
func (s *Submission) Wait() (string, error) {
	<-s.done
	return s.greeting, s.err
}

// WaitContext is like Wait but gives up when ctx is done. Giving up does not
// cancel the greet call.
func (s *Submission) WaitContext(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return s.greeting, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
