package codec_test

import (
	. "github.com/ajsrt/jsrt/codec"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Ref round trips", func() {
	It("preserves BlobRef fields including the dedup digest", func() {
		in := &BlobRef{BlobID: "blob-1", Size: 1024, Type: "text/plain", Digest: 0xdeadbeef}
		b, err := Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		out, err := Unmarshal(b)
		Expect(err).NotTo(HaveOccurred())
		got, ok := out.(*BlobRef)
		Expect(ok).To(BeTrue())
		Expect(got.BlobID).To(Equal(in.BlobID))
		Expect(got.Size).To(Equal(in.Size))
		Expect(got.Type).To(Equal(in.Type))
		Expect(got.Digest).To(Equal(in.Digest))
	})

	It("preserves FileRef fields", func() {
		in := &FileRef{
			BlobRef:      BlobRef{BlobID: "blob-2", Size: 42, Type: "image/png"},
			Name:         "photo.png",
			LastModified: 1700000000000,
		}
		b, err := Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		out, err := Unmarshal(b)
		Expect(err).NotTo(HaveOccurred())
		got, ok := out.(*FileRef)
		Expect(ok).To(BeTrue())
		Expect(got.Name).To(Equal(in.Name))
		Expect(got.LastModified).To(Equal(in.LastModified))
		Expect(got.BlobID).To(Equal(in.BlobID))
	})

	It("preserves header order and duplicates", func() {
		in := &HeadersRef{Pairs: [][2]string{{"x-a", "1"}, {"x-a", "2"}, {"x-b", "3"}}}
		b, err := Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		out, err := Unmarshal(b)
		Expect(err).NotTo(HaveOccurred())
		got, ok := out.(*HeadersRef)
		Expect(ok).To(BeTrue())
		Expect(got.Pairs).To(HaveLen(3))
		Expect(got.Pairs[0][1]).To(Equal("1"))
		Expect(got.Pairs[1][1]).To(Equal("2"))
	})

	It("preserves BigInt precision beyond float64", func() {
		in := &BigIntRef{Decimal: "123456789012345678901234567890"}
		b, err := Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		out, err := Unmarshal(b)
		Expect(err).NotTo(HaveOccurred())
		got, ok := out.(*BigIntRef)
		Expect(ok).To(BeTrue())
		Expect(got.Decimal).To(Equal(in.Decimal))
	})

	It("keeps UndefinedRef distinct from a plain nil", func() {
		b, err := Marshal(&UndefinedRef{})
		Expect(err).NotTo(HaveOccurred())
		out, err := Unmarshal(b)
		Expect(err).NotTo(HaveOccurred())
		_, ok := out.(*UndefinedRef)
		Expect(ok).To(BeTrue())

		nilBytes, err := Marshal(nil)
		Expect(err).NotTo(HaveOccurred())
		nilOut, err := Unmarshal(nilBytes)
		Expect(err).NotTo(HaveOccurred())
		Expect(nilOut).To(BeNil())
	})

	It("round-trips a plain map and slice", func() {
		in := map[string]interface{}{
			"name": "widget",
			"tags": []interface{}{"a", "b"},
			"qty":  int64(3),
		}
		b, err := Marshal(in)
		Expect(err).NotTo(HaveOccurred())
		out, err := Unmarshal(b)
		Expect(err).NotTo(HaveOccurred())
		m, ok := out.(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(m["name"]).To(Equal("widget"))
	})
})
