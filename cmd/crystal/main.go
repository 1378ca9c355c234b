// Command crystal runs the granular engine on a live input, an audio file or
// its internal chord, with a keyboard control surface in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/justyntemme/crystal/pkg/dsp/buffer"
	"github.com/justyntemme/crystal/pkg/framework/debug"
	"github.com/justyntemme/crystal/pkg/framework/process"
	"github.com/justyntemme/crystal/pkg/framework/state"
	"github.com/justyntemme/crystal/pkg/granular"
	"github.com/justyntemme/crystal/pkg/host"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "crystal:", err)
		os.Exit(2)
	}

	logger := debug.New(os.Stderr, "crystal", debug.DefaultFlags)
	if opts.logFile != "" {
		fileLogger, closer, err := debug.NewFileLogger(opts.logFile, "crystal", debug.DefaultFlags)
		if err != nil {
			logger.Fatal("%v", err)
		}
		defer closer.Close()
		logger = fileLogger
	}
	level, err := debug.ParseLevel(opts.logLevel)
	if err != nil {
		logger.Fatal("%v", err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts, logger); err != nil {
		logger.Error("%v", err)
		if opts.logFile != "" {
			fmt.Fprintln(os.Stderr, "crystal:", err)
		}
		exitCode = 1
	}
}

// stream is an open audio device.
type stream interface {
	Start() error
	Close() error
}

func openStream(opts options, renderer *host.Renderer, logger *debug.Logger) (stream, error) {
	if opts.backend == backendOto {
		buffered := time.Duration(float64(4*opts.block) / opts.rate * float64(time.Second))
		player, err := host.NewPlayer(renderer, buffered, logger)
		if err != nil {
			return nil, err
		}
		return player, nil
	}
	duplex, err := host.OpenDuplex(renderer, opts.block, opts.in == "", logger)
	if err != nil {
		return nil, err
	}
	return duplex, nil
}

func run(ctx context.Context, opts options, logger *debug.Logger) (err error) {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	config := granular.DefaultConfig()
	config.Seed = opts.seed
	engine := granular.New(granular.NewParameters(), config)
	engine.SetLogger(logger)
	params := engine.Parameters()

	presets := state.NewManager(params.Registry)
	presets.SetCustom(engine)
	if opts.preset != "" {
		if err := presets.LoadFile(opts.preset); err != nil {
			return fmt.Errorf("load preset: %w", err)
		}
		logger.Info("loaded preset %s", opts.preset)
	}
	if opts.source != "" {
		if err := params.InputSource.SetString(opts.source); err != nil {
			return err
		}
	}
	for _, assignment := range opts.sets {
		if err := params.Set(assignment); err != nil {
			return fmt.Errorf("-set %s: %w", assignment, err)
		}
	}

	if err := engine.Prepare(opts.rate, opts.block, opts.channels, opts.channels); err != nil {
		return fmt.Errorf("prepare engine: %w", err)
	}

	renderer := host.NewRenderer(engine, opts.rate, opts.block, opts.channels,
		process.NewAtomicTempo(opts.bpm))
	mon := &monitor{engine: engine}
	var sections *debug.Profiler
	if opts.profile {
		mon.profiler = debug.NewBlockProfiler(opts.rate)
		renderer.SetProfiler(mon.profiler)
		sections = debug.NewProfiler(1000)
	}

	if opts.in != "" {
		mon.input = buffer.NewFIFO(opts.rate, opts.channels, inputLatency)
		renderer.SetInput(mon.input)
		feeder := host.NewFeeder(host.OpenFile(host.DefaultRegistry(), opts.in, int(opts.rate)),
			mon.input, true, logger)
		if sections != nil {
			feeder.SetProfiler(sections)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feeder.Run(ctx); err != nil {
				logger.Error("input %s: %v", opts.in, err)
				cancel()
			}
		}()
	} else if opts.backend == backendOto && params.InputSource.GetPlainValue() == granular.SourceLive {
		logger.Warn("oto has no capture device; live input is silent (use -in or -source chord)")
	}

	var recorder *host.Recorder
	if opts.record != "" {
		recorder, err = host.NewRecorder(opts.record, opts.rate, opts.channels, logger)
		if err != nil {
			return err
		}
		renderer.SetTap(recorder.FIFO())
		if sections != nil {
			recorder.SetProfiler(sections)
		}
		defer func() {
			if recorder != nil {
				err = errors.Join(err, recorder.Close())
			}
		}()
	}

	out, err := openStream(opts, renderer, logger)
	if err != nil {
		return err
	}
	if err := out.Start(); err != nil {
		return errors.Join(err, out.Close())
	}
	logger.Info("running %s backend at %.0f Hz, block %d, %d channels, %.1f bpm",
		opts.backend, opts.rate, opts.block, opts.channels, opts.bpm)

	keys, kerr := host.NewKeys(os.Stdin)
	switch {
	case errors.Is(kerr, host.ErrNotTerminal):
		logger.Info("stdin is not a terminal; stop with Ctrl-C")
	case kerr != nil:
		logger.Warn("keyboard disabled: %v", kerr)
	default:
		if opts.logFile == "" {
			logger.SetOutput(rawWriter{w: os.Stderr})
		}
		defer func() {
			if opts.logFile == "" {
				logger.SetOutput(os.Stderr)
			}
			if rerr := keys.Close(); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}()
		screen := rawWriter{w: os.Stdout}

		ctrl := newControls(engine)
		fmt.Fprintf(screen, "%s\n", ctrl.help())
		go func() {
			err := keys.Run(func(key byte) bool {
				msg, more := ctrl.handle(key)
				if msg != "" {
					fmt.Fprintf(screen, "%s\n", msg)
				}
				if !more {
					cancel()
				}
				return more
			})
			if err != nil {
				logger.Warn("%v", err)
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			mon.run(ctx, os.Stdout, keys.Width)
		}()
	}

	<-ctx.Done()
	logger.Info("stopping")
	err = out.Close()
	cancel()
	wg.Wait()

	if recorder != nil {
		if cerr := recorder.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close recording: %w", cerr))
		} else {
			logger.Info("recorded %s", opts.record)
		}
		recorder = nil
	}
	if mon.profiler != nil {
		logger.Info("%s", mon.profiler.Report())
		if len(sections.Names()) > 0 {
			logger.Info("%s", sections.Report())
		}
	}
	if opts.savePreset != "" {
		if serr := presets.SaveFile(opts.savePreset); serr != nil {
			err = errors.Join(err, fmt.Errorf("save preset: %w", serr))
		} else {
			logger.Info("saved preset %s", opts.savePreset)
		}
	}
	return err
}
