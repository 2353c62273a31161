// Package simulation assembles a carousel controller with its engine,
// preloader, tracers and monitor.
package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/bokamoso/signin/carousel"
	"github.com/bokamoso/signin/datarecording"
	"github.com/bokamoso/signin/monitoring"
	"github.com/bokamoso/signin/timing"
	"github.com/bokamoso/signin/tracing"
)

type waiter interface {
	Wait()
}

// A Simulation owns a running carousel and the services around it.
type Simulation struct {
	id string

	serialEngine   *timing.SerialEngine
	realTimeEngine *timing.RealTimeEngine

	controller *carousel.Controller
	preloader  carousel.Preloader

	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	recordFile   string
	monitor      *monitoring.Monitor

	terminated bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Controller returns the carousel controller.
func (s *Simulation) Controller() *carousel.Controller {
	return s.controller
}

// Engine returns the engine that drives the controller.
func (s *Simulation) Engine() timing.EventScheduler {
	if s.serialEngine != nil {
		return s.serialEngine
	}

	return s.realTimeEngine
}

// SerialEngine returns the virtual-time engine, or nil for a real-time
// simulation.
func (s *Simulation) SerialEngine() *timing.SerialEngine {
	return s.serialEngine
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// RecordFile returns the SQLite file written by the recorder.
func (s *Simulation) RecordFile() string {
	return s.recordFile
}

// GetMonitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// RunUntil mounts the controller if needed and advances virtual time to t.
func (s *Simulation) RunUntil(t timing.VTime) error {
	if s.serialEngine == nil {
		return errors.New("simulation: RunUntil needs a virtual engine")
	}

	s.controller.Mount()

	return s.serialEngine.RunUntil(t)
}

// Serve runs a real-time simulation until ctx is cancelled. It mounts the
// controller and starts the monitor, if any.
func (s *Simulation) Serve(ctx context.Context) error {
	if s.realTimeEngine == nil {
		return errors.New("simulation: Serve needs a real-time engine")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.realTimeEngine.Run(ctx) }()

	err := s.realTimeEngine.Invoke(ctx, s.controller.Mount)
	if err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("simulation: mount: %w", err)
	}

	if s.monitor != nil {
		if _, err := s.monitor.StartServer(); err != nil {
			cancel()
			<-errCh
			return err
		}
	}

	return <-errCh
}

// Terminate unmounts the controller and releases the recorder and monitor.
// The engine must no longer be dispatching events.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	s.controller.Unmount()

	var errs []error

	if s.monitor != nil {
		errs = append(errs, s.monitor.Shutdown(context.Background()))
	}

	if w, ok := s.preloader.(waiter); ok {
		w.Wait()
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	return errors.Join(errs...)
}
