package streams

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("WritableStream", func() {
	It("records every written chunk in order", func() {
		var got []Chunk
		s := NewWritableStream(UnderlyingSink{
			Write: func(chunk Chunk, c *WritableController) error {
				got = append(got, chunk)
				return nil
			},
		}, nil)
		w, err := AcquireWriter(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Write("chunk1")).To(Succeed())
		Expect(w.Write("chunk2")).To(Succeed())
		Expect(got).To(Equal([]Chunk{"chunk1", "chunk2"}))
	})

	It("transitions to closed on Close", func() {
		s := NewWritableStream(UnderlyingSink{
			Close: func() error { return nil },
		}, nil)
		w, _ := AcquireWriter(s)
		Expect(w.Close()).To(Succeed())
		Expect(s.State()).To(Equal(WClosed))
	})

	It("rejects subsequent writes with the same sticky error", func() {
		boom := errors.New("boom")
		s := NewWritableStream(UnderlyingSink{
			Write: func(chunk Chunk, c *WritableController) error { return boom },
		}, nil)
		w, _ := AcquireWriter(s)
		Expect(w.Write("x")).To(MatchError(boom))
		Expect(w.Write("y")).To(MatchError(boom))
	})

	It("errors immediately on abort", func() {
		var aborted bool
		s := NewWritableStream(UnderlyingSink{
			Abort: func(reason error) error { aborted = true; return nil },
		}, nil)
		Expect(s.Abort(nil)).To(Succeed())
		Expect(aborted).To(BeTrue())
		Expect(s.State()).To(Equal(WErrored))
	})

	It("does not reject a pending write after a clean close and release", func() {
		s := NewWritableStream(UnderlyingSink{Close: func() error { return nil }}, nil)
		w, _ := AcquireWriter(s)
		Expect(w.Close()).To(Succeed())
		w.ReleaseLock()
		Expect(s.Locked()).To(BeFalse())
		_, err := AcquireWriter(s)
		Expect(err).NotTo(HaveOccurred())
	})

	It("prevents a second writer while locked", func() {
		s := NewWritableStream(UnderlyingSink{}, nil)
		_, err := AcquireWriter(s)
		Expect(err).NotTo(HaveOccurred())
		_, err = AcquireWriter(s)
		Expect(err).To(HaveOccurred())
	})
})
