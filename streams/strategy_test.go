package streams

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Queuing strategies", func() {
	It("counts each chunk as 1 regardless of payload", func() {
		s := CountQueuingStrategy{HighWaterMark: 3}
		Expect(s.Size([]byte("anything"))).To(Equal(1.0))
		Expect(s.HWM()).To(Equal(3.0))
	})

	It("sizes a byte-length strategy by buffer length, 0 for non-byte chunks", func() {
		s := ByteLengthQueuingStrategy{HighWaterMark: 1024}
		Expect(s.Size([]byte("hello"))).To(Equal(5.0))
		Expect(s.Size("not measurable")).To(Equal(0.0))
	})
})
