package parsing

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("ValidateItem", func() {
	amount := decimal.RequireFromString

	DescribeTable("accepted",
		func(description, value string) {
			Expect(ValidateItem(description, amount(value))).To(BeTrue())
		},
		Entry("typical item", "MILK", "3.99"),
		Entry("two character description", "AB", "1.00"),
		Entry("fifty character description", strings.Repeat("x", 50), "1.00"),
		Entry("amount at the ceiling", "TV", "5000"),
		Entry("surrounding whitespace", "  EGGS  ", "2.19"),
	)

	DescribeTable("rejected",
		func(description, value string) {
			Expect(ValidateItem(description, amount(value))).To(BeFalse())
		},
		Entry("empty description", "", "1.00"),
		Entry("one character description", "A", "1.00"),
		Entry("fifty one character description", strings.Repeat("x", 51), "1.00"),
		Entry("zero amount", "MILK", "0"),
		Entry("negative amount", "MILK", "-1.00"),
		Entry("amount over the ceiling", "TV", "5000.01"),
		Entry("summary keyword", "TOTAL DUE", "7.01"),
		Entry("tax prefix", "Tax exempt", "1.00"),
		Entry("cash prefix", "cash back", "1.00"),
		Entry("lowercase total prefix", "total savings", "1.00"),
		Entry("mixed case keyword", "Discount applied", "1.00"),
		Entry("coupon", "COUPON SAVINGS", "0.50"),
	)
})

var _ = Describe("newItem", func() {
	It("strips a leading count and builds a stable ID", func() {
		item := newItem(" 2 MUFFIN ", decimal.RequireFromString("4.50"), 3)
		Expect(item.Description).To(Equal("MUFFIN"))
		Expect(item.ID).To(Equal("3-MUFFIN-4.5"))
		Expect(item.Selected).To(BeTrue())
		Expect(item.LineNumber).To(Equal(3))
	})
})

var _ = Describe("extractItems", func() {
	var (
		text      string
		mode      Mode
		items     []Item
		potential []PotentialItem
	)

	BeforeEach(func() {
		mode = Advanced
	})

	JustBeforeEach(func() {
		lines := SplitLines(text)
		items, potential = extractItems(lines, ExtractTotals(lines), mode)
	})

	When("a price line is followed by a department label", func() {
		BeforeEach(func() {
			text = "1@ 7.54\nGROCERIES\nMILK 3.99"
		})

		It("uses the label as the description", func() {
			Expect(items).To(HaveLen(2))
			Expect(items[0].Description).To(Equal("GROCERIES"))
			Expect(items[0].Amount.StringFixed(2)).To(Equal("7.54"))
			Expect(items[0].LineNumber).To(Equal(1))
		})

		It("maps the department onto a category", func() {
			Expect(items[0].Category).To(Equal(Food))
			Expect(items[0].DetectedCategory).To(Equal("GROCERIES"))
		})

		It("consumes the label line", func() {
			Expect(items[1].Description).To(Equal("MILK"))
			Expect(items[1].LineNumber).To(Equal(3))
		})
	})

	When("the line after a price is not a label", func() {
		BeforeEach(func() {
			text = "1@ 7.54\nTHANK YOU"
		})

		It("falls back to the other patterns", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("@"))
			Expect(items[0].Amount.StringFixed(2)).To(Equal("7.54"))
			Expect(items[0].DetectedCategory).To(BeEmpty())
		})
	})

	When("a line has a quantity multiplier", func() {
		BeforeEach(func() {
			text = "APPLES 3 x 1.25"
		})

		It("takes the description and the unit price", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("APPLES"))
			Expect(items[0].Amount.StringFixed(2)).To(Equal("1.25"))
		})
	})

	When("a line starts with a count", func() {
		BeforeEach(func() {
			text = "2 MUFFIN 4.50"
		})

		It("drops the count", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("MUFFIN"))
			Expect(items[0].ID).To(Equal("1-MUFFIN-4.5"))
		})
	})

	When("a line uses a qty label", func() {
		BeforeEach(func() {
			text = "Yogurt Qty: 4 5.96"
		})

		It("takes the description before the label", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("Yogurt"))
			Expect(items[0].Amount.StringFixed(2)).To(Equal("5.96"))
		})
	})

	DescribeTable("standard separators",
		func(line, description, amount string) {
			lines := SplitLines(line)
			found, _ := extractItems(lines, ExtractTotals(lines), Advanced)
			Expect(found).To(HaveLen(1))
			Expect(found[0].Description).To(Equal(description))
			Expect(found[0].Amount.StringFixed(2)).To(Equal(amount))
		},
		Entry("space", "BANANAS 1.29", "BANANAS", "1.29"),
		Entry("dollar sign", "Shampoo $6.49", "Shampoo", "6.49"),
		Entry("no space before dollar", "Shampoo$6.49", "Shampoo", "6.49"),
		Entry("dash", "Parking-12.00", "Parking", "12.00"),
		Entry("at sign", "Coffee@2.75", "Coffee", "2.75"),
		Entry("whole dollars", "Movie ticket 14", "Movie ticket", "14.00"),
	)

	When("a line looks like an item but matches nothing", func() {
		BeforeEach(func() {
			text = "ITEM12 ABC\nSKU 99812 WIDGET 2 x 3 EA"
		})

		It("collects potential items in line order", func() {
			Expect(items).To(BeEmpty())
			Expect(potential).To(HaveLen(2))
			Expect(potential[0].Text).To(Equal("ITEM12 ABC"))
			Expect(potential[0].LineNumber).To(Equal(1))
		})
	})

	When("an item line is also a total line", func() {
		BeforeEach(func() {
			text = "GRAND TOTAL ITEMS 9.99"
		})

		It("never emits it", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("in basic mode", func() {
		BeforeEach(func() {
			mode = Basic
			text = "APPLES 3 x 1.25\nShampoo$6.49\nMILK 3.99"
		})

		It("only accepts description and price lines", func() {
			descriptions := make([]string, 0, len(items))
			for _, item := range items {
				descriptions = append(descriptions, item.Description)
			}
			Expect(descriptions).To(Equal([]string{"APPLES 3 x", "MILK"}))
		})
	})
})
