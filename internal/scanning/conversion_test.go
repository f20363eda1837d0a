package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	return img
}

var _ = Describe("ContentTypeFor", func() {
	It("maps known extensions", func() {
		ct, ok := ContentTypeFor("IMG_0001.HEIC")
		Expect(ok).To(BeTrue())
		Expect(ct).To(Equal("image/heic"))
	})

	It("rejects unknown extensions", func() {
		_, ok := ContentTypeFor("notes.txt")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("isHEIC", func() {
	It("detects the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEIC(data, "application/octet-stream")).To(BeTrue())
	})

	It("detects the MIME type", func() {
		Expect(isHEIC(nil, "image/heif")).To(BeTrue())
	})

	It("ignores other images", func() {
		Expect(isHEIC([]byte("\x89PNG\r\n\x1a\n0000"), "image/png")).To(BeFalse())
	})
})

var _ = Describe("PrepareImage", func() {
	It("passes PNG data through", func() {
		var buf bytes.Buffer
		Expect(png.Encode(&buf, testImage())).To(Succeed())

		data, err := PrepareImage(buf.Bytes(), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(buf.Bytes()))
	})

	It("converts JPEG to PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())

		data, err := PrepareImage(buf.Bytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		img, format, err := image.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
		Expect(img.Bounds().Dx()).To(Equal(40))
	})

	It("rejects data that is not an image", func() {
		_, err := PrepareImage([]byte("definitely not an image"), "image/jpeg")
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
	})
})
