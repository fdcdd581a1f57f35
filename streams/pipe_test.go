package streams

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("PipeTo/PipeThrough", func() {
	It("forwards chunks and closes the destination cleanly", func() {
		src := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error {
				c.Enqueue("chunk1")
				c.Enqueue("chunk2")
				c.Close()
				return nil
			},
		}, nil)

		var got []Chunk
		dest := NewWritableStream(UnderlyingSink{
			Write: func(chunk Chunk, c *WritableController) error {
				got = append(got, chunk)
				return nil
			},
			Close: func() error { return nil },
		}, nil)

		Expect(PipeTo(src, dest, PipeOptions{})).To(Succeed())
		Expect(got).To(Equal([]Chunk{"chunk1", "chunk2"}))
		Expect(dest.State()).To(Equal(WClosed))
		Expect(src.Locked()).To(BeFalse())
		Expect(dest.Locked()).To(BeFalse())
	})

	It("returns the transform's readable side", func() {
		src := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error {
				c.Enqueue(1)
				c.Close()
				return nil
			},
		}, nil)
		ts := NewTransformStream(Transformer{}, nil, nil)
		out := PipeThrough(src, ts, PipeOptions{})
		Expect(out).To(BeIdenticalTo(ts.Readable))

		r, err := AcquireReader(out)
		Expect(err).NotTo(HaveOccurred())
		res, err := r.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Value).To(Equal(1))
	})
})
