package simulation

import (
	"fmt"
	"io"
	"log"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/config"
	"github.com/bokamoso/signin/datarecording"
	"github.com/bokamoso/signin/hooking"
	"github.com/bokamoso/signin/idgen"
	"github.com/bokamoso/signin/monitoring"
	"github.com/bokamoso/signin/preload"
	"github.com/bokamoso/signin/slide"
	"github.com/bokamoso/signin/timing"
	"github.com/bokamoso/signin/tracing"
	"go.opentelemetry.io/otel/trace"
)

// ControllerName is the name given to the controller of a simulation.
const ControllerName = "Carousel"

// Builder can be used to build a simulation.
type Builder struct {
	cfg         config.Config
	deck        *slide.Deck
	preloader   carousel.Preloader
	logger      *log.Logger
	logEvents   bool
	record      bool
	provider    trace.TracerProvider
	monitorOn   bool
	openBrowser bool
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg: config.Default(),
	}
}

// WithConfig sets the timings, deck file, asset URL, record path and monitor
// port.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	b.record = b.record || cfg.RecordPath != ""

	return b
}

// WithDeck sets the slides, overriding the configured deck file.
func (b Builder) WithDeck(deck slide.Deck) Builder {
	b.deck = &deck
	return b
}

// WithPreloader sets the image preloader. Without one, virtual simulations do
// not prefetch and real-time simulations fetch from the asset base URL.
func (b Builder) WithPreloader(p carousel.Preloader) Builder {
	b.preloader = p
	return b
}

// WithLogger prints transitions and dropped requests to logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithEventLogging also prints every engine event. It requires WithLogger.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// WithRecorder records transitions into a SQLite file at the configured record
// path, or at a generated name if none is configured.
func (b Builder) WithRecorder() Builder {
	b.record = true
	return b
}

// WithOTel emits a span per transition through provider.
func (b Builder) WithOTel(provider trace.TracerProvider) Builder {
	b.provider = provider
	return b
}

// WithMonitor serves the monitoring API on the configured port. Only
// real-time simulations can be monitored.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithBrowser opens the monitor page once the server starts.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.logEvents && b.logger == nil {
		panic("event logging requires a logger")
	}

	if b.openBrowser && !b.monitorOn {
		panic("cannot open a browser without a monitor")
	}
}

// BuildVirtual builds a simulation driven by a virtual clock. Time only moves
// when the caller runs the engine.
func (b Builder) BuildVirtual() (*Simulation, error) {
	b.parametersMustBeValid()

	if b.monitorOn {
		panic("virtual simulations cannot be monitored")
	}

	engine := timing.NewSerialEngine()

	preloader := b.preloader
	if preloader == nil {
		preloader = preload.Nop{}
	}

	s, err := b.build(engine, preloader)
	if err != nil {
		return nil, err
	}

	s.serialEngine = engine

	return s, nil
}

// BuildRealTime builds a simulation driven by the wall clock. Call Serve to
// run it.
func (b Builder) BuildRealTime() (*Simulation, error) {
	b.parametersMustBeValid()

	engine := timing.NewRealTimeEngine()

	preloader := b.preloader
	if preloader == nil {
		prefetcher, err := preload.NewHTTPPrefetcher(
			b.cfg.AssetBaseURL, b.loggerOrDiscard())
		if err != nil {
			return nil, err
		}

		preloader = prefetcher
	}

	s, err := b.build(engine, preloader)
	if err != nil {
		return nil, err
	}

	s.realTimeEngine = engine

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor(engine, engine, s.controller).
			WithPortNumber(b.cfg.MonitorPort)

		if b.logger != nil {
			s.monitor.WithLogger(b.logger)
		}

		if b.openBrowser {
			s.monitor.WithBrowser()
		}
	}

	return s, nil
}

type hookableEngine interface {
	timing.EventScheduler
	AcceptHook(hook hooking.Hook)
}

func (b Builder) build(
	engine hookableEngine,
	preloader carousel.Preloader,
) (*Simulation, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	deck, err := b.resolveDeck()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:        idgen.NewParallel().Generate(),
		preloader: preloader,
	}

	cb := carousel.MakeBuilder().
		WithEngine(engine).
		WithDeck(deck).
		WithPreloader(preloader).
		WithAdvanceInterval(b.cfg.AdvanceInterval).
		WithTransitionDuration(b.cfg.TransitionDuration)
	if !b.cfg.RearmOnUnlock {
		cb = cb.WithFixedCadence()
	}

	s.controller = cb.Build(ControllerName)

	if b.logger != nil {
		s.controller.AcceptHook(tracing.NewTransitionLogger(b.logger))

		if b.logEvents {
			engine.AcceptHook(timing.NewEventLogger(b.logger))
		}
	}

	if b.record {
		path := b.cfg.RecordPath
		if path == "" {
			path = "signin_carousel_" + s.id
		}

		s.dataRecorder, err = datarecording.New(path)
		if err != nil {
			return nil, err
		}

		s.recordFile = path + ".sqlite3"
		s.dbTracer = tracing.NewDBTracer(s.dataRecorder)
		s.controller.AcceptHook(s.dbTracer)
	}

	if b.provider != nil {
		s.controller.AcceptHook(tracing.NewOTelTracer(b.provider))
	}

	return s, nil
}

func (b Builder) resolveDeck() (slide.Deck, error) {
	if b.deck != nil {
		return *b.deck, nil
	}

	if b.cfg.DeckFile == "" {
		return slide.DefaultDeck(), nil
	}

	deck, err := slide.LoadDeck(b.cfg.DeckFile)
	if err != nil {
		return slide.Deck{}, fmt.Errorf("simulation: %w", err)
	}

	return deck, nil
}

func (b Builder) loggerOrDiscard() *log.Logger {
	if b.logger != nil {
		return b.logger
	}

	return log.New(io.Discard, "", 0)
}
