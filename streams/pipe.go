package streams

// PipeOptions mirrors the subset of WHATWG pipeTo options this module
// needs: whether a source error/close should propagate to the dest.
type PipeOptions struct {
	PreventClose  bool
	PreventAbort  bool
	PreventCancel bool
}

// PipeTo implements ReadableStream.pipeTo(dest, opts) (spec.md §4.8):
// reads from s until done or error, forwarding each chunk to dest,
// always releasing the writer lock on the way out regardless of how
// the loop ended.
func PipeTo(s *ReadableStream, dest *WritableStream, opts PipeOptions) error {
	reader, err := AcquireReader(s)
	if err != nil {
		return err
	}
	writer, err := AcquireWriter(dest)
	if err != nil {
		reader.ReleaseLock()
		return err
	}
	defer writer.ReleaseLock()
	defer reader.ReleaseLock()

	for {
		res, rerr := reader.Read()
		if rerr != nil {
			if !opts.PreventAbort {
				_ = writer.Abort(rerr)
			}
			return rerr
		}
		if res.Done {
			if !opts.PreventClose {
				return writer.Close()
			}
			return nil
		}
		if werr := writer.Write(res.Value); werr != nil {
			if !opts.PreventCancel {
				_ = reader.Cancel(werr)
			}
			return werr
		}
	}
}

// PipeThrough implements pipeThrough(transform, opts): pipeTo the
// transform's writable side and return its readable side (spec.md §4.8
// defines this as literally `source.pipeTo(transform.writable);
// return transform.readable`).
func PipeThrough(s *ReadableStream, transform *TransformStream, opts PipeOptions) *ReadableStream {
	go func() { _ = PipeTo(s, transform.Writable, opts) }()
	return transform.Readable
}
