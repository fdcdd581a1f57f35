package streams

import "sync"

// Tee implements ReadableStream.tee() (spec.md §4.8): one underlying
// reader feeds two independent branch streams. A pull on either branch
// drives the shared source read; cancelling both branches cascades into
// the source reader's cancel with both reasons.
func Tee(s *ReadableStream) (branchA, branchB *ReadableStream, err error) {
	reader, err := AcquireReader(s)
	if err != nil {
		return nil, nil, err
	}

	var mu sync.Mutex
	var cancelledA, cancelledB bool
	var reasonA, reasonB error
	var ctlA, ctlB *ReadableController

	pull := func() error {
		mu.Lock()
		if cancelledA && cancelledB {
			mu.Unlock()
			return nil
		}
		mu.Unlock()

		res, rerr := reader.Read()
		if rerr != nil {
			mu.Lock()
			a, b := ctlA, ctlB
			mu.Unlock()
			if a != nil {
				a.Error(rerr)
			}
			if b != nil {
				b.Error(rerr)
			}
			return rerr
		}
		mu.Lock()
		a, b := ctlA, ctlB
		ca, cb := cancelledA, cancelledB
		mu.Unlock()
		if res.Done {
			if a != nil {
				a.Close()
			}
			if b != nil {
				b.Close()
			}
			return nil
		}
		if a != nil && !ca {
			a.Enqueue(res.Value)
		}
		if b != nil && !cb {
			b.Enqueue(res.Value)
		}
		return nil
	}

	cascadeCancel := func() {
		mu.Lock()
		done := cancelledA && cancelledB
		ra, rb := reasonA, reasonB
		mu.Unlock()
		if done {
			_ = reader.Cancel(&TeeCancelReasons{A: ra, B: rb})
		}
	}

	branchA = NewReadableStream(UnderlyingSource{
		Start: func(c *ReadableController) error { ctlA = c; return nil },
		Pull:  func(c *ReadableController) error { return pull() },
		Cancel: func(reason error) error {
			mu.Lock()
			cancelledA = true
			reasonA = reason
			mu.Unlock()
			cascadeCancel()
			return nil
		},
	}, nil)
	branchB = NewReadableStream(UnderlyingSource{
		Start: func(c *ReadableController) error { ctlB = c; return nil },
		Pull:  func(c *ReadableController) error { return pull() },
		Cancel: func(reason error) error {
			mu.Lock()
			cancelledB = true
			reasonB = reason
			mu.Unlock()
			cascadeCancel()
			return nil
		},
	}, nil)

	return branchA, branchB, nil
}

// TeeCancelReasons carries both branches' cancellation reasons when
// cascading into the shared source reader's cancel.
type TeeCancelReasons struct {
	A, B error
}

func (r *TeeCancelReasons) Error() string {
	return "both tee branches cancelled"
}
