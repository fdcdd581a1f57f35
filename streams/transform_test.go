package streams

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TransformStream", func() {
	It("applies the transformer to each chunk written through it", func() {
		ts := NewTransformStream(Transformer{
			Transform: func(chunk Chunk, c *TransformController) error {
				c.Enqueue(strings.ToUpper(chunk.(string)))
				return nil
			},
		}, nil, nil)

		writer, err := AcquireWriter(ts.Writable)
		Expect(err).NotTo(HaveOccurred())
		reader, err := AcquireReader(ts.Readable)
		Expect(err).NotTo(HaveOccurred())

		go func() {
			_ = writer.Write("hello")
			_ = writer.Close()
		}()

		res, err := reader.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Value).To(Equal("HELLO"))

		res, err = reader.Read()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Done).To(BeTrue())
	})
})
