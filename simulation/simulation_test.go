package simulation

import (
	"bytes"
	"context"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/bokamoso/signin/config"
	"github.com/bokamoso/signin/datarecording"
	"github.com/bokamoso/signin/slide"
	"github.com/bokamoso/signin/timing"
	"github.com/bokamoso/signin/tracing"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

const ms = time.Millisecond

var _ = Describe("Simulation", func() {
	var (
		mockCtrl  *gomock.Controller
		preloader *MockPreloader
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		preloader = NewMockPreloader(mockCtrl)
	})

	It("should prefetch every slide on the first run", func() {
		gomock.InOrder(
			preloader.EXPECT().Prefetch("/images/auth/auth-bg1.jpg"),
			preloader.EXPECT().Prefetch("/images/auth/auth-bg2.jpg"),
			preloader.EXPECT().Prefetch("/images/auth/auth-bg3.jpg"),
		)

		s, err := MakeBuilder().WithPreloader(preloader).BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.RunUntil(0)).To(Succeed())
		Expect(s.RunUntil(100 * ms)).To(Succeed())
	})

	It("should apply the configured timings", func() {
		preloader.EXPECT().Prefetch(gomock.Any()).AnyTimes()

		cfg := config.Default()
		cfg.AdvanceInterval = 1000 * ms
		cfg.TransitionDuration = 200 * ms

		s, err := MakeBuilder().
			WithConfig(cfg).
			WithPreloader(preloader).
			BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.RunUntil(1000 * ms)).To(Succeed())
		Expect(s.Controller().CurrentIndex()).To(Equal(1))
		Expect(s.Controller().IsLocked()).To(BeTrue())

		Expect(s.RunUntil(1200 * ms)).To(Succeed())
		Expect(s.Controller().IsLocked()).To(BeFalse())
	})

	It("should reject invalid configurations", func() {
		cfg := config.Default()
		cfg.TransitionDuration = 0

		_, err := MakeBuilder().WithConfig(cfg).BuildVirtual()
		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	It("should load the configured deck file", func() {
		f := filepath.Join(GinkgoT().TempDir(), "deck.yaml")
		Expect(os.WriteFile(f, []byte(
			"slides:\n"+
				"  - image: /a.jpg\n    quote: A\n    author: Ann\n"+
				"  - image: /b.jpg\n    quote: B\n    author: Bob\n",
		), 0o644)).To(Succeed())

		cfg := config.Default()
		cfg.DeckFile = f

		s, err := MakeBuilder().WithConfig(cfg).BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.Controller().Deck().Len()).To(Equal(2))
		Expect(s.Controller().ActiveSlide().Author).To(Equal("Ann"))
	})

	It("should fail on a missing deck file", func() {
		cfg := config.Default()
		cfg.DeckFile = filepath.Join(GinkgoT().TempDir(), "missing.yaml")

		_, err := MakeBuilder().WithConfig(cfg).BuildVirtual()
		Expect(err).To(HaveOccurred())
	})

	It("should prefer an explicit deck", func() {
		cfg := config.Default()
		cfg.DeckFile = "ignored.yaml"

		deck := slide.MustNewDeck(slide.Descriptor{
			ImageRef: "/only.jpg", Quote: "q", Author: "a",
		})

		s, err := MakeBuilder().WithConfig(cfg).WithDeck(deck).BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.Controller().Deck().Len()).To(Equal(1))
	})

	It("should log transitions", func() {
		buf := new(bytes.Buffer)

		s, err := MakeBuilder().
			WithLogger(log.New(buf, "", 0)).
			WithEventLogging().
			BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.RunUntil(5000 * ms)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Carousel: auto 0 -> 1"))
	})

	It("should record transitions", func() {
		cfg := config.Default()
		cfg.RecordPath = filepath.Join(GinkgoT().TempDir(), "trace")

		s, err := MakeBuilder().WithConfig(cfg).BuildVirtual()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.RunUntil(12 * time.Second)).To(Succeed())
		Expect(s.RecordFile()).To(Equal(cfg.RecordPath + ".sqlite3"))
		Expect(s.Terminate()).To(Succeed())

		reader, err := datarecording.NewReader(s.RecordFile())
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		trace, err := tracing.ReadTrace(context.Background(), reader)
		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Transitions).To(HaveLen(2))
		Expect(trace.Transitions[1].StartMs).To(BeNumerically("==", 10500))
	})

	It("should keep a fixed cadence when the unlock does not re-arm", func() {
		cfg := config.Default()
		cfg.RearmOnUnlock = false
		cfg.RecordPath = filepath.Join(GinkgoT().TempDir(), "trace")

		s, err := MakeBuilder().WithConfig(cfg).BuildVirtual()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.RunUntil(12 * time.Second)).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		reader, err := datarecording.NewReader(s.RecordFile())
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		trace, err := tracing.ReadTrace(context.Background(), reader)
		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Transitions).To(HaveLen(2))
		Expect(trace.Transitions[1].StartMs).To(BeNumerically("==", 10000))
	})

	It("should export spans", func() {
		recorder := tracetest.NewSpanRecorder()
		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(recorder))

		s, err := MakeBuilder().WithOTel(provider).BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.RunUntil(6 * time.Second)).To(Succeed())
		Expect(recorder.Ended()).To(HaveLen(1))
	})

	It("should refuse to monitor a virtual simulation", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithMonitor().BuildVirtual()
		}).To(Panic())
	})

	It("should refuse event logging without a logger", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithEventLogging().BuildVirtual()
		}).To(Panic())
	})

	It("should only serve real-time simulations", func() {
		s, err := MakeBuilder().BuildVirtual()
		Expect(err).NotTo(HaveOccurred())
		defer s.Terminate()

		Expect(s.Serve(context.Background())).NotTo(Succeed())
	})
})

var _ = Describe("Real-time simulation", func() {
	It("should serve the monitor until cancelled", func() {
		preloader := NewMockPreloader(gomock.NewController(GinkgoT()))
		preloader.EXPECT().Prefetch(gomock.Any()).Times(3)

		s, err := MakeBuilder().
			WithPreloader(preloader).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			WithMonitor().
			BuildRealTime()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Serve(ctx) }()

		Eventually(func() bool {
			var mounted bool
			_ = s.realTimeEngine.Invoke(ctx, func() {
				mounted = s.Controller().IsMounted()
			})
			return mounted
		}).Should(BeTrue())

		Expect(s.RunUntil(0)).NotTo(Succeed())

		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(s.Terminate()).To(Succeed())
		Expect(s.Controller().IsMounted()).To(BeFalse())
	})

	It("should stop the engine when the monitor cannot listen", func() {
		taken, err := net.Listen("tcp", ":0")
		Expect(err).NotTo(HaveOccurred())
		defer taken.Close()

		cfg := config.Default()
		cfg.MonitorPort = taken.Addr().(*net.TCPAddr).Port

		preloader := NewMockPreloader(gomock.NewController(GinkgoT()))
		preloader.EXPECT().Prefetch(gomock.Any()).Times(3)

		s, err := MakeBuilder().
			WithConfig(cfg).
			WithPreloader(preloader).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			WithMonitor().
			BuildRealTime()
		Expect(err).NotTo(HaveOccurred())

		err = s.Serve(context.Background())
		Expect(err).To(MatchError(ContainSubstring("monitoring: listen")))

		Expect(s.realTimeEngine.Invoke(context.Background(), func() {})).
			To(MatchError(timing.ErrEngineStopped))
		Expect(s.Terminate()).To(Succeed())
		Expect(s.Controller().IsMounted()).To(BeFalse())
	})
})
