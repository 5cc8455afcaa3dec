package predictor_test

import (
	"strings"

	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bbusim/timing/cache"
	"github.com/sarchlab/bbusim/timing/predictor"
)

type counter struct {
	History uint64
	Value   uint64
}

// table returns the predictor's counters from oldest to newest.
func table(p *predictor.Predictor) []counter {
	var out []counter
	p.Table().Range(func(key, value uint64) bool {
		out = append(out, counter{key, value})
		return true
	})
	return out
}

func run(p *predictor.Predictor, outcomes ...int) []bool {
	preds := make([]bool, 0, len(outcomes))
	for _, o := range outcomes {
		preds = append(preds, p.Predict(o == 1))
	}
	return preds
}

var _ = Describe("Predictor", func() {
	var config predictor.Config

	BeforeEach(func() {
		config = predictor.Config{
			HistoryWidth:  2,
			TableSize:     3,
			CounterStates: 4,
			InitPolicy:    predictor.InitHistoryBiased,
		}
	})

	Describe("Construction", func() {
		DescribeTable("should reject invalid configs",
			func(mutate func(*predictor.Config)) {
				mutate(&config)
				_, err := predictor.New(config)
				Expect(err).To(MatchError(predictor.ErrInvalidConfig))
			},
			Entry("zero history width", func(c *predictor.Config) { c.HistoryWidth = 0 }),
			Entry("history wider than 64", func(c *predictor.Config) { c.HistoryWidth = 65 }),
			Entry("zero table size", func(c *predictor.Config) { c.TableSize = 0 }),
			Entry("one counter state", func(c *predictor.Config) { c.CounterStates = 1 }),
			Entry("unknown init policy", func(c *predictor.Config) { c.InitPolicy = "random" }),
			Entry("negative associativity", func(c *predictor.Config) { c.Associativity = -1 }),
			Entry("associativity not dividing the table", func(c *predictor.Config) {
				c.TableSize = 6
				c.Associativity = 4
			}),
		)

		It("should start with an empty table and zero history", func() {
			p, err := predictor.New(config)
			Expect(err).NotTo(HaveOccurred())

			Expect(p.History()).To(BeZero())
			Expect(p.Table().Len()).To(BeZero())
			Expect(p.Table().Capacity()).To(Equal(3))
		})
	})

	Describe("End-to-end trace", func() {
		outcomes := []int{1, 1, 1, 0, 0, 0, 1, 1}

		It("should match the hand-computed history-biased trace", func() {
			p, err := predictor.New(config)
			Expect(err).NotTo(HaveOccurred())

			preds := run(p, outcomes...)

			Expect(preds).To(Equal([]bool{false, true, true, true, false, false, false, true}))
			stats := p.Stats()
			Expect(stats.Predictions).To(Equal(uint64(8)))
			Expect(stats.Mispredictions).To(Equal(uint64(3)))
			Expect(stats.Correct).To(Equal(uint64(5)))
			Expect(stats.TableMisses).To(Equal(uint64(6)))
			Expect(stats.Evictions).To(Equal(uint64(3)))
			Expect(p.History()).To(Equal(uint64(0b11)))
			Expect(table(p)).To(Equal([]counter{{0b10, 1}, {0b00, 2}, {0b01, 3}}))
		})

		It("should match the hand-computed midpoint trace", func() {
			config.InitPolicy = predictor.InitMidpoint
			p, err := predictor.New(config)
			Expect(err).NotTo(HaveOccurred())

			preds := run(p, outcomes...)

			Expect(preds).To(Equal([]bool{false, false, false, true, false, false, false, false}))
			Expect(p.Stats().Mispredictions).To(Equal(uint64(6)))
			Expect(table(p)).To(Equal([]counter{{0b10, 1}, {0b00, 2}, {0b01, 3}}))
		})
	})

	Describe("Initialization", func() {
		It("should bias a new counter by the last outcome", func() {
			p, _ := predictor.New(config)
			p.Predict(true) // history becomes 0b01

			p.Predict(true)
			// Counter for 0b01 started at 2+1 and saturated at 3.
			value, ok := p.Counter(0b01)
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(uint64(3)))
		})

		It("should clamp the biased start to the top state", func() {
			config.CounterStates = 2
			p, _ := predictor.New(config)
			p.Predict(true)

			// mid 1 + bias 1 would leave the range.
			p.Predict(false)
			value, ok := p.Counter(0b01)
			Expect(ok).To(BeTrue())
			Expect(value).To(BeZero())
		})

		It("should start every counter at the midpoint when asked", func() {
			config.InitPolicy = predictor.InitMidpoint
			config.CounterStates = 8
			p, _ := predictor.New(config)
			p.Predict(true)

			Expect(p.Predict(false)).To(BeFalse())
			value, _ := p.Counter(0b01)
			Expect(value).To(Equal(uint64(3)))
		})
	})

	Describe("Saturating counter", func() {
		It("should never exceed the top state", func() {
			config.HistoryWidth = 1
			p, _ := predictor.New(config)

			for i := 0; i < 100; i++ {
				p.Predict(true)
			}

			value, _ := p.Counter(1)
			Expect(value).To(Equal(uint64(3)))
			Expect(p.Predict(true)).To(BeTrue())
		})

		It("should never fall below zero", func() {
			config.HistoryWidth = 1
			p, _ := predictor.New(config)

			for i := 0; i < 100; i++ {
				p.Predict(false)
			}

			value, ok := p.Counter(0)
			Expect(ok).To(BeTrue())
			Expect(value).To(BeZero())
			Expect(p.Predict(false)).To(BeFalse())
		})

		It("should stay in range for any outcome sequence", func() {
			for _, states := range []uint64{2, 3, 4, 7} {
				config.CounterStates = states
				config.HistoryWidth = 3
				config.TableSize = 4
				p, _ := predictor.New(config)

				seq := uint64(0x9E3779B97F4A7C15)
				for i := 0; i < 500; i++ {
					p.Predict(seq&1 == 1)
					seq = seq>>1 | seq<<63
					if i%7 == 0 {
						seq ^= 0x5
					}

					p.Table().Range(func(_, value uint64) bool {
						Expect(value).To(BeNumerically("<", states))
						return true
					})
				}
			}
		})

		It("should need two mispredictions to flip a strong state", func() {
			config.HistoryWidth = 1
			p, _ := predictor.New(config)
			run(p, 1, 1, 1, 1) // counter for history 1 saturates at 3

			// 3 -> 2, then the history passes through 0 and returns to 1.
			Expect(p.Predict(false)).To(BeTrue())
			p.Predict(true)

			// 2 -> 1
			Expect(p.Predict(false)).To(BeFalse())
		})
	})

	Describe("History register", func() {
		It("should keep only the configured number of bits", func() {
			p, _ := predictor.New(config)
			run(p, 1, 1, 1, 0)

			Expect(p.History()).To(Equal(uint64(0b10)))
		})

		It("should support a full 64-bit register", func() {
			config.HistoryWidth = 64
			p, _ := predictor.New(config)

			for i := 0; i < 64; i++ {
				p.Predict(true)
			}
			Expect(p.History()).To(Equal(^uint64(0)))

			p.Predict(false)
			Expect(p.History()).To(Equal(^uint64(1)))
		})
	})

	Describe("Learning", func() {
		It("should predict a periodic pattern once trained", func() {
			config.HistoryWidth = 3
			config.TableSize = 8
			p, _ := predictor.New(config)

			pattern := []int{1, 1, 0}
			for i := 0; i < 30; i++ {
				run(p, pattern...)
			}
			p.ResetStats()

			for i := 0; i < 10; i++ {
				run(p, pattern...)
			}
			Expect(p.Stats().Mispredictions).To(BeZero())
			Expect(p.Stats().Accuracy()).To(BeNumerically("~", 100.0))
			Expect(p.Stats().TableMissRate()).To(BeZero())
		})

		It("should alias histories when the table is too small", func() {
			config.HistoryWidth = 2
			config.TableSize = 1
			p, _ := predictor.New(config)

			for i := 0; i < 20; i++ {
				run(p, 1, 0)
			}

			Expect(p.Stats().Evictions).To(BeNumerically(">", 0))
			Expect(p.Table().Len()).To(Equal(1))
		})
	})

	Describe("Set-associative table", func() {
		It("should build a set-associative table from the config", func() {
			config.TableSize = 4
			config.Associativity = 2
			p, err := predictor.New(config)
			Expect(err).NotTo(HaveOccurred())

			_, ok := p.Table().(*cache.SetAssociative)
			Expect(ok).To(BeTrue())
			Expect(p.Table().Capacity()).To(Equal(4))
		})

		It("should give the same trace as the LRU table with one set", func() {
			config.Associativity = 3
			p, err := predictor.New(config)
			Expect(err).NotTo(HaveOccurred())

			preds := run(p, 1, 1, 1, 0, 0, 0, 1, 1)

			Expect(preds).To(Equal([]bool{false, true, true, true, false, false, false, true}))
			Expect(table(p)).To(Equal([]counter{{0b10, 1}, {0b00, 2}, {0b01, 3}}))
		})
	})

	Describe("Options", func() {
		It("should use a supplied table", func() {
			t, err := cache.New(5)
			Expect(err).NotTo(HaveOccurred())

			p, err := predictor.New(config, predictor.WithTable(t))
			Expect(err).NotTo(HaveOccurred())
			p.Predict(true)

			Expect(p.Table()).To(BeIdenticalTo(t))
			Expect(t.Len()).To(Equal(1))
		})

		It("should log evictions at verbosity 2", func() {
			var lines []string
			log := funcr.New(func(prefix, args string) {
				lines = append(lines, args)
			}, funcr.Options{Verbosity: 2})

			config.TableSize = 1
			p, _ := predictor.New(config, predictor.WithLogger(log))
			run(p, 1, 1)

			Expect(lines).To(HaveLen(1))
			Expect(strings.Contains(lines[0], "counter evicted")).To(BeTrue())
		})
	})

	Describe("Reset", func() {
		It("should clear history, counters and statistics", func() {
			p, _ := predictor.New(config)
			run(p, 1, 0, 1)

			p.Reset()

			Expect(p.History()).To(BeZero())
			Expect(p.Table().Len()).To(BeZero())
			Expect(p.Stats()).To(Equal(predictor.Stats{}))
			Expect(p.Table().Stats()).To(Equal(cache.Statistics{}))
		})
	})

	Describe("Destroy", func() {
		It("should release the table", func() {
			p, _ := predictor.New(config)
			p.Predict(true)
			p.Destroy()

			Expect(func() { p.Predict(true) }).To(Panic())
		})
	})
})
