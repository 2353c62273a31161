// Package monitoring serves an HTTP surface that lets a rendering layer or an
// operator watch and drive a running carousel controller.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/monitoring/web"
	"github.com/bokamoso/signin/slide"
	"github.com/bokamoso/signin/timing"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A Dispatcher runs fn on the goroutine that owns the controller and waits
// for it to return.
type Dispatcher interface {
	Invoke(ctx context.Context, fn func()) error
}

// Monitor can turn a carousel into a server and allows external monitoring
// and controlling of the carousel.
type Monitor struct {
	dispatcher Dispatcher
	clock      timing.TimeTeller
	controller *carousel.Controller

	portNumber  int
	openBrowser bool
	logger      *log.Logger

	server *http.Server
}

// NewMonitor creates a new Monitor. Every access to the controller goes
// through dispatcher.
func NewMonitor(
	dispatcher Dispatcher,
	clock timing.TimeTeller,
	controller *carousel.Controller,
) *Monitor {
	return &Monitor{
		dispatcher: dispatcher,
		clock:      clock,
		controller: controller,
		logger:     log.New(os.Stderr, "", 0),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 select
// a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Printf(
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// WithLogger sets where the monitor prints its address and errors.
func (m *Monitor) WithLogger(logger *log.Logger) *Monitor {
	m.logger = logger
	return m
}

// Router returns the monitor's HTTP handler.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/slide", m.activeSlide).Methods(http.MethodGet)
	r.HandleFunc("/api/deck", m.listSlides).Methods(http.MethodGet)
	r.HandleFunc("/api/next", m.next).Methods(http.MethodPost)
	r.HandleFunc("/api/prev", m.prev).Methods(http.MethodPost)
	r.HandleFunc("/api/goto/{index}", m.goTo).Methods(http.MethodPost)
	r.HandleFunc("/api/now", m.now).Methods(http.MethodGet)
	r.HandleFunc("/api/controller", m.controllerDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitoring: listen: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Printf("Monitoring carousel with %s", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Printf("monitoring: %v", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.logger.Printf("monitoring: open browser: %v", err)
		}
	}

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type slideRsp struct {
	Index   int              `json:"index"`
	Locked  bool             `json:"locked"`
	Mounted bool             `json:"mounted"`
	Slide   slide.Descriptor `json:"slide"`
}

func (m *Monitor) snapshot() slideRsp {
	return slideRsp{
		Index:   m.controller.CurrentIndex(),
		Locked:  m.controller.IsLocked(),
		Mounted: m.controller.IsMounted(),
		Slide:   m.controller.ActiveSlide(),
	}
}

// invoke runs fn through the dispatcher and writes 503 if the engine is gone.
func (m *Monitor) invoke(w http.ResponseWriter, r *http.Request, fn func()) bool {
	err := m.dispatcher.Invoke(r.Context(), fn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) activeSlide(w http.ResponseWriter, r *http.Request) {
	var rsp slideRsp
	if m.invoke(w, r, func() { rsp = m.snapshot() }) {
		m.writeJSON(w, rsp)
	}
}

func (m *Monitor) listSlides(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.controller.Deck().Slides())
}

func (m *Monitor) next(w http.ResponseWriter, r *http.Request) {
	var rsp slideRsp

	ok := m.invoke(w, r, func() {
		m.controller.Next()
		rsp = m.snapshot()
	})
	if ok {
		m.writeJSON(w, rsp)
	}
}

func (m *Monitor) prev(w http.ResponseWriter, r *http.Request) {
	var rsp slideRsp

	ok := m.invoke(w, r, func() {
		m.controller.Prev()
		rsp = m.snapshot()
	})
	if ok {
		m.writeJSON(w, rsp)
	}
}

func (m *Monitor) goTo(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid slide index", http.StatusBadRequest)
		return
	}

	var (
		rsp     slideRsp
		gotoErr error
	)

	ok := m.invoke(w, r, func() {
		gotoErr = m.controller.GoTo(index)
		rsp = m.snapshot()
	})
	if !ok {
		return
	}

	if gotoErr != nil {
		http.Error(w, gotoErr.Error(), http.StatusBadRequest)
		return
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) now(w http.ResponseWriter, r *http.Request) {
	var now timing.VTime
	if m.invoke(w, r, func() { now = m.clock.CurrentTime() }) {
		fmt.Fprintf(w, "{\"now_ms\":%d}", now.Milliseconds())
	}
}

func (m *Monitor) controllerDetails(w http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)

	var err error

	ok := m.invoke(w, r, func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(m.controller)
		serializer.SetMaxDepth(1)

		if field := r.URL.Query().Get("field"); field != "" {
			err = serializer.SetEntryPoint(strings.Split(field, "."))
			if err != nil {
				return
			}
		}

		err = serializer.Serialize(buf)
	})
	if !ok {
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Printf("monitoring: write response: %v", err)
	}
}
