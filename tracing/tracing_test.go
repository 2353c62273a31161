package tracing

import (
	"bytes"
	"context"
	"database/sql"
	"log"
	"path/filepath"
	"time"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/datarecording"
	"github.com/bokamoso/signin/slide"
	"github.com/bokamoso/signin/timing"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const ms = time.Millisecond

func newController(engine *timing.SerialEngine) *carousel.Controller {
	return carousel.MakeBuilder().
		WithEngine(engine).
		WithDeck(slide.DefaultDeck()).
		Build("Carousel")
}

// driveScenario produces one automatic transition, one manual transition and
// one dropped request.
func driveScenario(engine *timing.SerialEngine, c *carousel.Controller) {
	c.Mount()
	engine.RunUntil(7000 * ms)
	c.Prev()
	engine.RunUntil(7200 * ms)
	c.Next()
	engine.RunUntil(8000 * ms)
}

var _ = Describe("TransitionLogger", func() {
	It("should log starts, ends and drops", func() {
		buf := new(bytes.Buffer)
		engine := timing.NewSerialEngine()
		c := newController(engine)
		c.AcceptHook(NewTransitionLogger(log.New(buf, "", 0)))

		driveScenario(engine, c)

		out := buf.String()
		Expect(out).To(ContainSubstring("5s, Carousel: auto 0 -> 1"))
		Expect(out).To(ContainSubstring("5.5s, Carousel: unlocked on slide 1"))
		Expect(out).To(ContainSubstring("7s, Carousel: prev 1 -> 0"))
		Expect(out).To(ContainSubstring("7.2s, Carousel: next dropped"))
	})
})

var _ = Describe("DBTracer", func() {
	var (
		db       *sql.DB
		recorder datarecording.DataRecorder
		tracer   *DBTracer
	)

	BeforeEach(func() {
		var err error
		db, err = sql.Open("sqlite3",
			filepath.Join(GinkgoT().TempDir(), "trace.sqlite3"))
		Expect(err).NotTo(HaveOccurred())

		recorder = datarecording.NewWithDB(db)
		tracer = NewDBTracer(recorder)
	})

	AfterEach(func() {
		Expect(recorder.Close()).To(Succeed())
	})

	It("should create its tables", func() {
		Expect(recorder.ListTables()).To(ConsistOf(
			TransitionTable, DroppedRequestTable))
	})

	It("should record completed transitions and dropped requests", func() {
		engine := timing.NewSerialEngine()
		c := newController(engine)
		c.AcceptHook(tracer)

		driveScenario(engine, c)
		tracer.Flush()

		reader := datarecording.NewReaderWithDB(db)
		trace, err := ReadTrace(context.Background(), reader)
		Expect(err).NotTo(HaveOccurred())

		Expect(trace.Transitions).To(HaveLen(2))
		Expect(trace.Transitions[0]).To(MatchFields(IgnoreExtras, Fields{
			"Controller":  Equal("Carousel"),
			"TriggerKind": Equal("auto"),
			"FromIndex":   Equal(0),
			"ToIndex":     Equal(1),
			"StartMs":     BeNumerically("==", 5000),
			"EndMs":       BeNumerically("==", 5500),
		}))
		Expect(trace.Transitions[1]).To(MatchFields(IgnoreExtras, Fields{
			"TriggerKind": Equal("prev"),
			"FromIndex":   Equal(1),
			"ToIndex":     Equal(0),
			"StartMs":     BeNumerically("==", 7000),
		}))

		Expect(trace.Dropped).To(HaveLen(1))
		Expect(trace.Dropped[0]).To(MatchFields(IgnoreExtras, Fields{
			"TriggerKind": Equal("next"),
			"TargetIndex": Equal(-1),
			"TimeMs":      BeNumerically("==", 7200),
		}))
	})

	It("should filter recorded transitions by trigger", func() {
		engine := timing.NewSerialEngine()
		c := newController(engine)
		c.AcceptHook(tracer)

		driveScenario(engine, c)
		tracer.Flush()

		reader := datarecording.NewReaderWithDB(db)
		reader.MapTable(TransitionTable, TransitionRecord{})

		rows, total, err := reader.Query(context.Background(), TransitionTable,
			datarecording.QueryParams{
				Where: "TriggerKind = ? AND StartMs >= ?",
				Args:  []any{"prev", 6000},
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].(*TransitionRecord).StartMs).To(BeNumerically("==", 7000))
	})
})

var _ = Describe("OTelTracer", func() {
	var (
		recorder *tracetest.SpanRecorder
		provider *sdktrace.TracerProvider
	)

	BeforeEach(func() {
		recorder = tracetest.NewSpanRecorder()
		provider = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(recorder))
	})

	It("should emit one span per transition", func() {
		engine := timing.NewSerialEngine()
		c := newController(engine)
		c.AcceptHook(NewOTelTracer(provider))

		driveScenario(engine, c)

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Name()).To(Equal("carousel.transition"))
		Expect(spans[0].Attributes()).To(ContainElements(
			attribute.String("carousel.trigger", "auto"),
			attribute.Int("carousel.from", 0),
			attribute.Int("carousel.to", 1),
			attribute.Int64("carousel.end_ms", 5500),
		))

		Expect(spans[1].Attributes()).To(ContainElement(
			attribute.String("carousel.trigger", "prev")))
		Expect(spans[1].Events()).To(HaveLen(1))
		Expect(spans[1].Events()[0].Name).To(Equal("request dropped"))
	})

	It("should leave the span open until the lock is released", func() {
		engine := timing.NewSerialEngine()
		c := newController(engine)
		c.AcceptHook(NewOTelTracer(provider))

		c.Mount()
		c.Next()
		engine.RunUntil(499 * ms)
		Expect(recorder.Started()).To(HaveLen(1))
		Expect(recorder.Ended()).To(BeEmpty())

		engine.RunUntil(500 * ms)
		Expect(recorder.Ended()).To(HaveLen(1))
	})
})
