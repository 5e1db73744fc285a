package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractMerchant", func() {
	var (
		text     string
		merchant string
		found    bool
	)

	JustBeforeEach(func() {
		merchant, found = ExtractMerchant(text)
	})

	When("the header starts with boilerplate", func() {
		BeforeEach(func() {
			text = "DOCUMENTO COMMERCIALE\n  FARMACIA   SAN MARCO  \nP.IVA 01234567890\n12/03/2024"
		})

		It("returns the first real name, title-cased", func() {
			Expect(found).To(BeTrue())
			Expect(merchant).To(Equal("Farmacia San Marco"))
		})
	})

	When("the header has only numbers", func() {
		BeforeEach(func() {
			text = "12/03/2024 10:41\n0001 0002\n45,50"
		})

		It("finds nothing", func() {
			Expect(found).To(BeFalse())
		})
	})
})

var _ = Describe("Fold", func() {
	It("uppercases and strips accents", func() {
		Expect(Fold("Caffè Società")).To(Equal("CAFFE SOCIETA"))
	})
})
