package scanning

import (
	"bytes"
	"image"
	"image/jpeg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("prepareImages", func() {
	It("re-encodes every page as JPEG", func() {
		images, err := prepareImages([]Page{{Data: testPNG(40, 30), ContentType: "IMAGE/PNG "}}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(images).To(HaveLen(1))
		Expect(images[0].MediaType).To(Equal("image/jpeg"))

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(images[0].Data))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Width).To(Equal(40))
	})

	It("shrinks images until they fit the byte budget", func() {
		full, err := prepareImages([]Page{{Data: testPNG(1600, 1600)}}, 0)
		Expect(err).NotTo(HaveOccurred())
		budget := len(full[0].Data) / 2

		images, err := prepareImages([]Page{{Data: testPNG(1600, 1600)}}, budget)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(images[0].Data)).To(BeNumerically("<=", budget))

		img, _, err := image.Decode(bytes.NewReader(images[0].Data))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(BeNumerically("<", 1600))
	})

	It("caps the number of pages", func() {
		pages := make([]Page, maxImages+3)
		for i := range pages {
			pages[i] = Page{Data: testPNG(8, 8), ContentType: "image/png"}
		}
		images, err := prepareImages(pages, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(images).To(HaveLen(maxImages))
	})

	It("rejects empty input", func() {
		_, err := prepareImages(nil, 0)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("isHEICFormat", func() {
	It("recognises the ftyp brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00"))).To(BeFalse())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
	})
})
