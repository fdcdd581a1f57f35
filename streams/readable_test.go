package streams

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ReadableStream", func() {
	It("returns enqueued chunks in order", func() {
		var ctl *ReadableController
		s := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error {
				ctl = c
				c.Enqueue([]byte("a"))
				c.Enqueue([]byte("b"))
				return nil
			},
		}, nil)
		_ = ctl

		r1, err := s.read()
		Expect(err).NotTo(HaveOccurred())
		Expect(r1.Done).To(BeFalse())
		r2, err := s.read()
		Expect(err).NotTo(HaveOccurred())
		Expect(r2.Done).To(BeFalse())
	})

	It("defers close until the queue drains", func() {
		var ctl *ReadableController
		s := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error {
				ctl = c
				c.Enqueue(1)
				return nil
			},
		}, CountQueuingStrategy{HighWaterMark: 1})

		ctl.Close()
		Expect(s.State()).To(Equal(Readable))

		res, err := s.read()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Done).To(BeFalse())
		Expect(s.State()).To(Equal(RClosed))

		res, err = s.read()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Done).To(BeTrue())
	})

	It("fulfills a parked read from a later enqueue", func() {
		var ctl *ReadableController
		s := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error { ctl = c; return nil },
		}, nil)

		resultCh := make(chan Result, 1)
		go func() {
			r, _ := s.read()
			resultCh <- r
		}()

		ctl.Enqueue("late")
		r := <-resultCh
		Expect(r.Value).To(Equal("late"))
	})

	It("rejects a parked read on error", func() {
		var ctl *ReadableController
		s := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error { ctl = c; return nil },
		}, nil)

		errCh := make(chan error, 1)
		go func() {
			_, err := s.read()
			errCh <- err
		}()

		boom := errors.New("boom")
		ctl.Error(boom)
		Expect(<-errCh).To(Equal(boom))
		Expect(s.State()).To(Equal(RErrored))
	})

	It("calls the underlying source's cancel hook", func() {
		var cancelled bool
		s := NewReadableStream(UnderlyingSource{
			Cancel: func(reason error) error { cancelled = true; return nil },
		}, nil)
		Expect(s.Cancel(nil)).To(Succeed())
		Expect(cancelled).To(BeTrue())
		Expect(s.State()).To(Equal(RErrored))
	})

	It("prevents a second reader while locked", func() {
		s := NewReadableStream(UnderlyingSource{}, nil)
		r1, err := AcquireReader(s)
		Expect(err).NotTo(HaveOccurred())
		_, err = AcquireReader(s)
		Expect(err).To(HaveOccurred())
		r1.ReleaseLock()
		_, err = AcquireReader(s)
		Expect(err).NotTo(HaveOccurred())
	})

	It("stops iterating on done and releases the lock", func() {
		var ctl *ReadableController
		s := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error {
				ctl = c
				c.Enqueue(1)
				c.Enqueue(2)
				c.Close()
				return nil
			},
		}, nil)
		_ = ctl

		r, err := AcquireReader(s)
		Expect(err).NotTo(HaveOccurred())
		var got []Chunk
		err = r.Iterate(func(c Chunk) (bool, error) {
			got = append(got, c)
			return false, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(s.Locked()).To(BeFalse())
	})
})
