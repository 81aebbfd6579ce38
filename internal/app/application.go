package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"adsbtrack/internal/adsb"
	"adsbtrack/internal/basestation"
	"adsbtrack/internal/beast"
	"adsbtrack/internal/config"
	"adsbtrack/internal/demod"
	"adsbtrack/internal/logging"
	"adsbtrack/internal/recording"
	"adsbtrack/internal/registry"
	"adsbtrack/internal/tracker"
)

const (
	sampleReadBuffer = 1 << 20
	tcpPrefix        = "tcp://"
)

// Application wires a frame source through the decoder into the tracker and
// the SBS output log.
type Application struct {
	config Config
	logger *logrus.Logger
	stdin  io.Reader
	stdout io.Writer

	input       io.Closer
	source      adsb.FrameSource
	demodulator *demod.Demodulator
	registry    *registry.Database
	manager     *tracker.Manager
	baseStation *basestation.Writer
	logRotator  *logging.Rotator
	recorder    *recording.Writer

	wg sync.WaitGroup

	// counters shared with the statistics reporter
	framesReceived atomic.Uint64
	messagesQueued atomic.Uint64
	discarded      atomic.Uint64
	tracked        atomic.Int64
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// Start runs until the input is exhausted or SIGINT/SIGTERM is received.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting adsbtrack")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := app.Run(ctx)
	if errors.Is(err, context.Canceled) {
		app.logger.Info("Received shutdown signal")
		return nil
	}
	return err
}

// Run processes the configured source until it ends or ctx is done.
func (app *Application) Run(ctx context.Context) error {
	if err := app.initializeComponents(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := make(chan adsb.Message, DefaultMessageQueue)
	pipelineErr := make(chan error, 1)
	trackerDone := make(chan struct{})

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		pipelineErr <- app.runPipeline(ctx, messages)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer close(trackerDone)
		app.runTracker(ctx, messages)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logRotator.Start(ctx)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics(ctx)
	}()

	app.logger.WithFields(logrus.Fields{
		"source": app.config.Source.Kind,
		"path":   app.config.Source.Path,
	}).Info("All components started successfully")

	var err error
	select {
	case <-trackerDone:
		if err = ctx.Err(); err == nil {
			// the tracker only drains to completion after the pipeline returned
			err = <-pipelineErr
			app.logger.Info("Input exhausted")
		}
	case <-ctx.Done():
		err = ctx.Err()
	}

	app.shutdown(cancel)
	app.logStatistics()
	return err
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	var err error

	if err := app.openSource(); err != nil {
		return err
	}

	if app.config.Registry.Path != "" {
		app.registry, err = registry.Open(app.config.Registry.Path, app.config.Registry.CacheTTL, app.logger)
		if err != nil {
			return err
		}
	}

	app.logRotator, err = logging.NewRotator(app.config.Output.LogDir, app.config.Output.UTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	if _, err := app.logRotator.CleanupOldLogs(DefaultLogRetention); err != nil {
		app.logger.WithError(err).Warn("Failed to clean up old logs")
	}

	var out io.Writer = app.logRotator
	if app.config.Output.Stdout {
		out = io.MultiWriter(app.logRotator, app.stdout)
	}
	app.baseStation = basestation.NewWriter(out, time.Now(), app.logger)

	if app.registry != nil {
		app.manager = tracker.NewManager(app.registry, app.logger)
	} else {
		app.manager = tracker.NewManager(nil, app.logger)
	}
	app.manager.OnEvent(app.baseStation.Handle)

	if app.config.Record.Path != "" {
		app.recorder, err = recording.Create(app.config.Record.Path)
		if err != nil {
			return err
		}
	}
	return nil
}

// openSource opens the input stream and the frame source reading it
func (app *Application) openSource() error {
	path := app.config.Source.Path

	var input io.ReadCloser
	switch {
	case path == "-":
		input = io.NopCloser(app.stdin)
	case strings.HasPrefix(path, tcpPrefix):
		if app.config.Source.Kind != config.SourceBeast {
			return fmt.Errorf("tcp sources are only supported for %s input", config.SourceBeast)
		}
		conn, err := net.Dial("tcp", strings.TrimPrefix(path, tcpPrefix))
		if err != nil {
			return fmt.Errorf("failed to connect to beast source: %w", err)
		}
		input = conn
	default:
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open source: %w", err)
		}
		input = f
	}
	app.input = input

	switch app.config.Source.Kind {
	case config.SourceSamples:
		d, err := demod.NewDemodulator(bufio.NewReaderSize(input, sampleReadBuffer), app.logger)
		if err != nil {
			return fmt.Errorf("failed to start demodulator: %w", err)
		}
		app.demodulator = d
		app.source = d
	case config.SourceRecording:
		r, err := recording.NewReader(input, app.logger)
		if err != nil {
			return err
		}
		app.source = r
	case config.SourceBeast:
		app.source = beast.NewReader(input, app.logger)
	default:
		return fmt.Errorf("unknown source kind %q", app.config.Source.Kind)
	}
	return nil
}

// runPipeline pulls frames from the source, records and decodes them and
// queues the messages for the tracker. It closes out when done.
func (app *Application) runPipeline(ctx context.Context, out chan<- adsb.Message) error {
	defer close(out)

	speed := 0.0
	if app.config.Replay.Realtime {
		speed = app.config.Replay.Speed
	}

	err := recording.Replay(ctx, app.source, speed, func(frame adsb.RawFrame) error {
		app.framesReceived.Add(1)
		if app.recorder != nil {
			if err := app.recorder.Write(frame); err != nil {
				return err
			}
		}

		msg, ok := adsb.Decode(frame)
		if !ok {
			app.discarded.Add(1)
			return nil
		}

		select {
		case out <- msg:
			app.messagesQueued.Add(1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.WithError(err).Error("Frame pipeline failed")
	}
	return err
}

// runTracker is the only goroutine touching the tracker
func (app *Application) runTracker(ctx context.Context, in <-chan adsb.Message) {
	ticker := time.NewTicker(app.config.Tracker.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-in:
			if !ok {
				app.manager.Purge()
				app.tracked.Store(int64(app.manager.Len()))
				return
			}
			app.manager.Update(msg)
		case <-ticker.C:
			app.manager.Purge()
		case <-ctx.Done():
			return
		}
		app.tracked.Store(int64(app.manager.Len()))
	}
}

// reportStatistics reports processing statistics periodically
func (app *Application) reportStatistics(ctx context.Context) {
	ticker := time.NewTicker(app.config.Stats.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.logStatistics()
		}
	}
}

func (app *Application) logStatistics() {
	fields := logrus.Fields{
		"frames":    app.framesReceived.Load(),
		"messages":  app.messagesQueued.Load(),
		"discarded": app.discarded.Load(),
		"aircraft":  app.tracked.Load(),
	}
	if app.demodulator != nil {
		s := app.demodulator.Stats()
		fields["preambles"] = s.Preambles
		fields["rejected_crc"] = s.RejectedBad
		fields["rejected_format"] = s.RejectedUnknown
		fields["level_mean"] = fmt.Sprintf("%.0f", s.LevelMean)
		fields["level_stddev"] = fmt.Sprintf("%.0f", s.LevelStdDev)
	}
	if app.baseStation != nil {
		fields["sbs_lines"] = app.baseStation.Written()
	}
	app.logger.WithFields(fields).Info("Processing statistics")
}

// shutdown stops the goroutines and releases every resource
func (app *Application) shutdown(cancel context.CancelFunc) {
	app.logger.Info("Shutting down application")
	cancel()

	// a pipeline blocked reading its input only returns once it is closed
	if app.input != nil {
		app.input.Close()
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("All goroutines finished")
	case <-time.After(DefaultShutdownWait):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	app.cleanup()
	app.logger.Info("Shutdown completed")
}

func (app *Application) cleanup() {
	if app.input != nil {
		app.input.Close()
		app.input = nil
	}
	if app.recorder != nil {
		if err := app.recorder.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close recording")
		}
		app.recorder = nil
	}
	if app.registry != nil {
		app.registry.Close()
		app.registry = nil
	}
	if app.logRotator != nil {
		app.logRotator.Close()
		app.logRotator = nil
	}
}
