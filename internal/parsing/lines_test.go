package parsing

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SplitLines", func() {
	It("trims lines and drops empty ones", func() {
		lines := SplitLines("  WALMART  \n\n\t\nMILK 3.99\r\n   \nBREAD 2.50")
		Expect(lines).To(Equal([]Line{
			{Index: 0, Text: "WALMART"},
			{Index: 1, Text: "MILK 3.99"},
			{Index: 2, Text: "BREAD 2.50"},
		}))
	})

	It("returns no lines for empty text", func() {
		Expect(SplitLines("")).To(BeEmpty())
		Expect(SplitLines("\n \n")).To(BeEmpty())
	})
})

var _ = Describe("ShouldSkipLine", func() {
	DescribeTable("skipped lines",
		func(line string) {
			Expect(ShouldSkipLine(line)).To(BeTrue())
		},
		Entry("greeting", "Thank You for shopping"),
		Entry("thankyou without space", "THANKYOU"),
		Entry("cashier", "Cashier: Bob"),
		Entry("transaction number", "TRAN # 1234"),
		Entry("summary line", "SUBTOTAL 6.49"),
		Entry("amount tendered", "Amount Tendered 20.00"),
		Entry("numbers and separators", "12:45 01-15-2024"),
		Entry("store number", "Store #1234"),
		Entry("asterisks", "*****"),
		Entry("dashes", "-----"),
		Entry("equals", "====="),
		Entry("quantity and dollar", "2 $4.00"),
		Entry("phone number", "(555) 123-4567"),
		Entry("street address", "123 Main Street"),
		Entry("short street suffix", "42 Elm St"),
		Entry("date prefix", "01/15/2024 10:32 AM"),
		Entry("surrounding whitespace", "   TOTAL 7.01   "),
	)

	DescribeTable("kept lines",
		func(line string) {
			Expect(ShouldSkipLine(line)).To(BeFalse())
		},
		Entry("plain item", "MILK 3.99"),
		Entry("quantity item", "APPLES 3 x 1.25"),
		Entry("department price", "1@ 7.54"),
		Entry("merchant", "WALMART"),
	)
})

var _ = Describe("IsPotentialItem", func() {
	It("accepts lines with letters and digits", func() {
		Expect(IsPotentialItem("ITEM12 ABC")).To(BeTrue())
	})

	It("rejects lines without digits", func() {
		Expect(IsPotentialItem("WALMART")).To(BeFalse())
	})

	It("rejects lines without a run of two letters", func() {
		Expect(IsPotentialItem("A1 B2 C3")).To(BeFalse())
	})

	It("rejects lines longer than 60 characters", func() {
		Expect(IsPotentialItem("AB" + strings.Repeat("1", 59))).To(BeFalse())
	})
})

var _ = Describe("potentialItemScore", func() {
	It("adds price, word and length bonuses", func() {
		Expect(potentialItemScore("ITEM12 ABC")).To(BeNumerically("~", 0.7, 1e-9))
	})

	It("adds the multiplier bonus", func() {
		Expect(potentialItemScore("WIDGET 2 x 3 EA")).To(BeNumerically("~", 1.0, 1e-9))
	})
})
