package parsing

import (
	"context"
	"math/rand"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parse", func() {
	var (
		text    string
		opts    Options
		receipt *Receipt
	)

	BeforeEach(func() {
		opts = Options{
			Mode:  Advanced,
			Clock: fixedClock{now: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)},
		}
	})

	JustBeforeEach(func() {
		receipt = Parse(text, nil, opts)
	})

	When("parsing a simple grocery receipt", func() {
		BeforeEach(func() {
			text = "WALMART\n01/15/2024\nMILK 3.99\nBREAD 2.50\nSUBTOTAL 6.49\nTAX 0.52\nTOTAL 7.01"
		})

		It("extracts the header fields", func() {
			Expect(receipt.Merchant).To(Equal("WALMART"))
			Expect(receipt.Date).To(Equal("01/15/2024"))
		})

		It("extracts the summary amounts", func() {
			Expect(receipt.Subtotal.StringFixed(2)).To(Equal("6.49"))
			Expect(receipt.Tax.StringFixed(2)).To(Equal("0.52"))
			Expect(receipt.Total.StringFixed(2)).To(Equal("7.01"))
		})

		It("extracts both items as food", func() {
			Expect(receipt.Items).To(HaveLen(2))
			Expect(receipt.Items[0].Description).To(Equal("MILK"))
			Expect(receipt.Items[0].Amount.StringFixed(2)).To(Equal("3.99"))
			Expect(receipt.Items[0].Category).To(Equal(Food))
			Expect(receipt.Items[1].Description).To(Equal("BREAD"))
			Expect(receipt.Items[1].Amount.StringFixed(2)).To(Equal("2.50"))
			Expect(receipt.Items[1].Category).To(Equal(Food))
		})

		It("does not turn summary lines into items", func() {
			for _, item := range receipt.Items {
				Expect(item.LineNumber).To(BeNumerically("<", 5))
			}
		})

		It("records the processing steps in order", func() {
			Expect(receipt.ProcessingSteps).To(Equal([]string{StepMerchant, StepDate, StepTotals, StepItems}))
		})

		It("scores the parse", func() {
			Expect(receipt.Confidence).To(BeNumerically("~", 0.98, 1e-9))
			Expect(receipt.Parser).To(Equal(HeuristicParserName))
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = ""
		})

		It("returns defaults", func() {
			Expect(receipt.Merchant).To(Equal(UnknownMerchant))
			Expect(receipt.Date).To(Equal("2024-06-01"))
			Expect(receipt.Total.IsZero()).To(BeTrue())
			Expect(receipt.Items).To(BeEmpty())
			Expect(receipt.PotentialItems).To(BeEmpty())
			Expect(receipt.Confidence).To(BeZero())
		})
	})

	When("only a cash line carries an amount", func() {
		BeforeEach(func() {
			text = "CORNER CAFE\nLATTE 4.25\nCASH 20.00\nCHANGE 15.75"
		})

		It("uses the cash amount as the total", func() {
			Expect(receipt.Total.StringFixed(2)).To(Equal("20.00"))
		})

		It("still finds the item", func() {
			Expect(receipt.Items).To(HaveLen(1))
			Expect(receipt.Items[0].Description).To(Equal("LATTE"))
		})
	})

	When("items have different confidences", func() {
		BeforeEach(func() {
			text = "STORE\n12345 9.99\nMilk 3.99\nWIDGET 999.00\nSKU 99812 WIDGET 2 x 3 EA\nITEM12 ABC"
		})

		It("sorts items by descending confidence", func() {
			for i := 1; i < len(receipt.Items); i++ {
				Expect(receipt.Items[i-1].Confidence).To(BeNumerically(">=", receipt.Items[i].Confidence))
			}
			Expect(receipt.Items[0].Description).To(Equal("Milk"))
		})

		It("sorts potential items by descending score", func() {
			Expect(receipt.PotentialItems).To(HaveLen(2))
			Expect(receipt.PotentialItems[0].Text).To(Equal("SKU 99812 WIDGET 2 x 3 EA"))
			Expect(receipt.TopPotentialItems(1)).To(HaveLen(1))
		})
	})

	When("parsing the same text twice", func() {
		BeforeEach(func() {
			text = "TARGET\nJan 3, 2024\nSOAP 2.99\n2 PENCILS 1.50\nTOTAL 4.49"
		})

		It("returns identical results", func() {
			Expect(Parse(text, nil, opts)).To(Equal(receipt))
		})
	})

	When("the text is arbitrary", func() {
		It("terminates and never emits excluded lines or invalid amounts", func() {
			r := rand.New(rand.NewSource(42))
			alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcxyz0123456789 .$@-x\n:/#*="
			for n := 0; n < 200; n++ {
				var sb strings.Builder
				for i := 0; i < r.Intn(400); i++ {
					sb.WriteByte(alphabet[r.Intn(len(alphabet))])
				}
				input := sb.String()
				result := Parse(input, nil, opts)
				totals := ExtractTotals(SplitLines(input))

				Expect(result.Confidence).To(BeNumerically(">=", 0))
				Expect(result.Confidence).To(BeNumerically("<=", 1))
				for _, item := range result.Items {
					Expect(totals.IsExcluded(item.LineNumber - 1)).To(BeFalse())
					Expect(item.Amount.IsPositive()).To(BeTrue())
					Expect(item.Confidence).To(BeNumerically("<=", 1))
				}
			}
		})
	})
})

var _ = Describe("Heuristic", func() {
	It("never returns an error", func() {
		parser := NewHeuristic(Options{Mode: Basic})
		receipt, err := parser.Parse(context.Background(), "COFFEE 2.00", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.Items).To(HaveLen(1))
	})
})

var _ = Describe("ParseMode", func() {
	It("defaults to advanced", func() {
		Expect(ParseMode("")).To(Equal(Advanced))
	})

	It("accepts basic", func() {
		Expect(ParseMode(" BASIC ")).To(Equal(Basic))
	})

	It("rejects unknown modes", func() {
		_, err := ParseMode("fancy")
		Expect(err).To(HaveOccurred())
	})
})
