package streams

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tee", func() {
	It("delivers every chunk to both branches", func() {
		var ctl *ReadableController
		src := NewReadableStream(UnderlyingSource{
			Start: func(c *ReadableController) error {
				ctl = c
				c.Enqueue("x")
				c.Close()
				return nil
			},
		}, nil)
		_ = ctl

		a, b, err := Tee(src)
		Expect(err).NotTo(HaveOccurred())

		ra, _ := AcquireReader(a)
		rb, _ := AcquireReader(b)

		resA, err := ra.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(resA.Value).To(Equal("x"))
		resB, err := rb.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(resB.Value).To(Equal("x"))

		resA, err = ra.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(resA.Done).To(BeTrue())
		resB, err = rb.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(resB.Done).To(BeTrue())
	})

	It("cascades cancel to the source once both branches cancel", func() {
		var sourceCancelled bool
		src := NewReadableStream(UnderlyingSource{
			Cancel: func(reason error) error { sourceCancelled = true; return nil },
		}, nil)

		a, b, err := Tee(src)
		Expect(err).NotTo(HaveOccurred())
		_ = a.Cancel(nil)
		Expect(sourceCancelled).To(BeFalse())
		_ = b.Cancel(nil)
		Expect(sourceCancelled).To(BeTrue())
	})
})
