package streams

// Transformer mirrors the {start, transform, flush} hooks (spec.md §4.8).
type Transformer struct {
	Start     func(c *TransformController) error
	Transform func(chunk Chunk, c *TransformController) error
	Flush     func(c *TransformController) error
}

// TransformController proxies enqueue/error/terminate to the readable
// side of the pair.
type TransformController struct {
	readable *ReadableStream
}

func (c *TransformController) Enqueue(chunk Chunk) { c.readable.enqueue(chunk) }
func (c *TransformController) Error(err error)      { c.readable.errorSource(err) }
func (c *TransformController) Terminate()           { c.readable.closeSource() }

// TransformStream pairs an internal WritableStream whose sink forwards
// writes into the transformer and an internal ReadableStream the
// transformer enqueues into (spec.md §4.8).
type TransformStream struct {
	Readable *ReadableStream
	Writable *WritableStream
}

func NewTransformStream(t Transformer, readableStrategy, writableStrategy QueuingStrategy) *TransformStream {
	ts := &TransformStream{}
	ts.Readable = NewReadableStream(UnderlyingSource{}, readableStrategy)
	tc := &TransformController{readable: ts.Readable}

	ts.Writable = NewWritableStream(UnderlyingSink{
		Start: func(c *WritableController) error {
			if t.Start != nil {
				return t.Start(tc)
			}
			return nil
		},
		Write: func(chunk Chunk, c *WritableController) error {
			if t.Transform != nil {
				return t.Transform(chunk, tc)
			}
			tc.Enqueue(chunk)
			return nil
		},
		Close: func() error {
			if t.Flush != nil {
				if err := t.Flush(tc); err != nil {
					return err
				}
			}
			tc.readable.closeSource()
			return nil
		},
		Abort: func(reason error) error {
			tc.readable.errorSource(reason)
			return nil
		},
	}, writableStrategy)

	return ts
}
