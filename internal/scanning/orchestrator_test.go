package scanning

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-itemizer/internal/parsing"
)

// scriptedEngine returns one scripted response per call
type scriptedEngine struct {
	responses []engineResponse
	calls     int
}

type engineResponse struct {
	recognition Recognition
	err         error
}

func (e *scriptedEngine) Name() string {
	return "Scripted"
}

func (e *scriptedEngine) Recognize(ctx context.Context, _ []byte, _ string) (Recognition, error) {
	e.calls++
	if e.calls > len(e.responses) {
		return Recognition{}, errors.New("no scripted response")
	}
	r := e.responses[e.calls-1]
	return r.recognition, r.err
}

func (e *scriptedEngine) Close() error {
	return nil
}

func text(s string) engineResponse {
	return engineResponse{recognition: Recognition{Text: s}}
}

func failure(msg string) engineResponse {
	return engineResponse{err: errors.New(msg)}
}

// goodReceiptText scores above 0.7 and is longer than 50 characters
var goodReceiptText = "WALMART\n01/15/2024\nMILK $3.99\nBREAD $2.50\nSUBTOTAL 6.49\nTAX 0.52\nTOTAL 7.01\nTHANK YOU"

var _ = Describe("Orchestrator", func() {
	var (
		engine       *scriptedEngine
		settings     Settings
		orchestrator *Orchestrator
		waits        []time.Duration
		result       *Result
		err          error
	)

	BeforeEach(func() {
		engine = &scriptedEngine{}
		settings = DefaultSettings()
		waits = nil
	})

	JustBeforeEach(func() {
		orchestrator = NewOrchestrator(engine, settings, discardLogger())
		orchestrator.wait = func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}
		result, err = orchestrator.Recognize(context.Background(), []byte("image"), "image/png")
	})

	When("the first attempt is good enough", func() {
		BeforeEach(func() {
			engine.responses = []engineResponse{text(goodReceiptText)}
		})

		It("stops after one attempt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.calls).To(Equal(1))
			Expect(result.Attempts).To(HaveLen(1))
			Expect(waits).To(BeEmpty())
		})

		It("labels the engine with the attempt", func() {
			Expect(result.Engine).To(Equal("Scripted (Attempt 1)"))
			Expect(result.Text).To(Equal(goodReceiptText))
			Expect(result.Confidence).To(BeNumerically(">", 0.7))
		})
	})

	When("no attempt clears the threshold", func() {
		BeforeEach(func() {
			engine.responses = []engineResponse{text("abc 1"), text("MILK $3.99"), text("abc")}
		})

		It("runs every attempt and waits between them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.calls).To(Equal(3))
			Expect(waits).To(Equal([]time.Duration{time.Second, time.Second}))
		})

		It("keeps the most confident attempt", func() {
			Expect(result.Text).To(Equal("MILK $3.99"))
			Expect(result.Engine).To(Equal("Scripted (Best of 3)"))
			Expect(result.Attempts).To(HaveLen(3))
		})
	})

	When("attempts tie on confidence", func() {
		BeforeEach(func() {
			engine.responses = []engineResponse{text("first 1"), text("other 2"), text("third 3")}
		})

		It("keeps the earliest", func() {
			Expect(result.Text).To(Equal("first 1"))
		})
	})

	When("some attempts fail", func() {
		BeforeEach(func() {
			engine.responses = []engineResponse{failure("engine crashed"), text("MILK 3.99"), failure("engine crashed")}
		})

		It("records the failures and uses the successful attempt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Text).To(Equal("MILK 3.99"))
			Expect(result.Attempts[0].Error).To(Equal("OCR attempt 1 failed: engine crashed"))
			Expect(result.Attempts[2].Error).To(ContainSubstring("attempt 3"))
		})
	})

	When("every attempt fails or returns nothing", func() {
		BeforeEach(func() {
			engine.responses = []engineResponse{failure("boom"), text(""), failure("boom")}
		})

		It("returns the exhausted error with the attempt count", func() {
			Expect(err).To(MatchError(ErrOCRExhausted))
			Expect(err.Error()).To(ContainSubstring("all 3 OCR attempts failed"))
			Expect(result).To(BeNil())
		})
	})

	When("multiple attempts are disabled", func() {
		BeforeEach(func() {
			settings.MultipleAttempts = false
			engine.responses = []engineResponse{text("x 1"), text(goodReceiptText)}
		})

		It("makes exactly one attempt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.calls).To(Equal(1))
			Expect(result.Engine).To(Equal("Scripted (Best of 1)"))
		})
	})

	When("a long text stays under a high threshold", func() {
		BeforeEach(func() {
			settings.ConfidenceThreshold = 0.9
			long := strings.Repeat("item ", 12)
			engine.responses = []engineResponse{text(long), text(long), text(long)}
		})

		It("keeps retrying", func() {
			Expect(engine.calls).To(Equal(3))
		})
	})

	When("the engine reports blocks", func() {
		BeforeEach(func() {
			blocks := make([]parsing.Block, 11)
			engine.responses = []engineResponse{{recognition: Recognition{Text: "abc 1", Blocks: blocks}}, text("abc 1"), text("abc 1")}
		})

		It("counts them toward the confidence", func() {
			Expect(result.Blocks).To(HaveLen(11))
			Expect(result.Attempts[0].Confidence).To(BeNumerically(">", result.Attempts[1].Confidence))
		})
	})
})

var _ = Describe("Orchestrator cancellation", func() {
	It("stops when the context is cancelled during an attempt", func() {
		ctx, cancel := context.WithCancel(context.Background())
		engine := &cancelingEngine{cancel: cancel}
		orchestrator := NewOrchestrator(engine, DefaultSettings(), discardLogger())

		_, err := orchestrator.Recognize(ctx, nil, "image/png")
		Expect(err).To(MatchError(context.Canceled))
		Expect(engine.calls).To(Equal(1))
	})

	It("does not sleep through a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(sleepContext(ctx, time.Hour)).To(MatchError(context.Canceled))
	})

	It("bounds each attempt with the attempt timeout", func() {
		settings := DefaultSettings()
		settings.MultipleAttempts = false
		settings.AttemptTimeout = 10 * time.Millisecond
		orchestrator := NewOrchestrator(blockingEngine{}, settings, discardLogger())

		_, err := orchestrator.Recognize(context.Background(), nil, "image/png")
		Expect(err).To(MatchError(ErrOCRExhausted))
	})
})

// cancelingEngine cancels its caller's context on the first call
type cancelingEngine struct {
	cancel context.CancelFunc
	calls  int
}

func (e *cancelingEngine) Name() string { return "Canceling" }

func (e *cancelingEngine) Recognize(_ context.Context, _ []byte, _ string) (Recognition, error) {
	e.calls++
	e.cancel()
	return Recognition{Text: "abc 1"}, nil
}

func (e *cancelingEngine) Close() error { return nil }

// blockingEngine waits for its context to end
type blockingEngine struct{}

func (blockingEngine) Name() string { return "Blocking" }

func (blockingEngine) Recognize(ctx context.Context, _ []byte, _ string) (Recognition, error) {
	<-ctx.Done()
	return Recognition{}, ctx.Err()
}

func (blockingEngine) Close() error { return nil }

var _ = Describe("Settings", func() {
	It("accepts the listed thresholds", func() {
		for _, t := range ConfidenceThresholds {
			Expect(Settings{ConfidenceThreshold: t}.Validate()).To(Succeed())
		}
	})

	It("rejects other thresholds", func() {
		Expect(Settings{ConfidenceThreshold: 0.75}.Validate()).NotTo(Succeed())
	})
})
