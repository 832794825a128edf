// Command wavepod-sim is the host tick loop of spec.md §2: "a tick loop
// steps the emulator by a budgeted cycle count, drives the timer and
// interrupt models from elapsed nanoseconds, and services any asserted
// IRQ/FIQ lines before the next fetch." It wires every sim-side
// component (bus, interrupt controller, timers, DMA engine, ARM CPU,
// ATA engine, audio pipeline, façade) together and drives them at a
// fixed rate, the same shape as the teacher's fyne_ui.go run loop
// (time.NewTicker(time.Second/tickHz)) generalized from a GUI paint
// loop to a headless audio-producing one.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"wavepod/internal/arm"
	"wavepod/internal/ata"
	"wavepod/internal/bus"
	"wavepod/internal/config"
	"wavepod/internal/dma"
	"wavepod/internal/hostio"
	"wavepod/internal/intc"
	"wavepod/internal/log"
	"wavepod/internal/pipeline"
	"wavepod/internal/player"
	"wavepod/internal/timer"
)

// tickHz is the host loop's driving rate, matching the teacher's
// fyne_ui.go uiTickHz constant in spirit (a fixed, comfortably-above-
// audio-buffer-drain-rate cadence rather than an attempt at cycle-
// accurate real time).
const tickHz = 120

func main() {
	var (
		romPath       = pflag.String("rom", "", "boot ROM/flash image to load onto the simulated bus")
		ataImage      = pflag.String("ata-image", "", "disk image file backing the ATA engine (defaults to an in-memory disk)")
		ataSectors    = pflag.Uint64("ata-sectors", 65536, "sector count for the in-memory disk when --ata-image is not given")
		configPath    = pflag.String("config", "", "path to a wavepod.yaml tunables file (optional)")
		sdlAudio      = pflag.Bool("sdl-audio", false, "drive the audio pipeline through an SDL2 audio device instead of an in-memory sink")
		debugConsole  = pflag.Bool("debug-console", false, "open a pty-backed debug console")
		enableLogging = pflag.Bool("log", false, "enable logging for every component")
		cyclesPerTick = pflag.Uint("cycles-per-tick", 20000, "ARM cycles executed per host tick")
		volume        = pflag.Int("volume", -1, "initial volume 0-100 (defaults to the config file's default_volume)")
		playlist      = pflag.StringArray("play", nil, "audio files to queue, in order; the first is loaded (and played unless --paused)")
		startPaused   = pflag.Bool("paused", false, "load the first --play entry without starting playback")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavepod-sim: %v\n", err)
		os.Exit(1)
	}
	if *volume >= 0 {
		cfg.DefaultVolume = *volume
	}

	logger := log.New()
	if *enableLogging {
		logger.SetEnabled(log.Bus, true)
		logger.SetEnabled(log.Intc, true)
		logger.SetEnabled(log.Timer, true)
		logger.SetEnabled(log.DMA, true)
		logger.SetEnabled(log.ARM, true)
		logger.SetEnabled(log.ATA, true)
		logger.SetEnabled(log.Audio, true)
		logger.SetEnabled(log.Pipeline, true)
		logger.SetEnabled(log.Telemetry, true)
		logger.SetEnabled(log.Player, true)
		logger.SetEnabled(log.Sim, true)
		logger.SetEnabled(log.Config, true)
		logger.SetEnabled(log.HostIO, true)
	}

	controller := intc.New()
	controller.SetGlobalEnable(true)
	controller.RouteToFIQ(intc.SourceI2S, true)
	controller.SetEnabled(intc.SourceI2S, true)
	controller.SetEnabled(intc.SourceIDE, true)

	theBus := bus.New(logger)
	if *romPath != "" {
		data, err := os.ReadFile(*romPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wavepod-sim: reading --rom: %v\n", err)
			os.Exit(1)
		}
		theBus.LoadBootROM(data)
	}

	cpu := arm.NewCPU(theBus)
	cpu.FIQPending = controller.PendingFIQ
	cpu.IRQPending = controller.PendingIRQ

	timerSys := timer.New(controller)

	disk, closeDisk, err := openDisk(*ataImage, *ataSectors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavepod-sim: %v\n", err)
		os.Exit(1)
	}
	defer closeDisk()
	ataCtrl := ata.New(disk)
	ataCtrl.BusyTimeout = cfg.ATABusyTimeout
	ataCtrl.DRQTimeout = cfg.ATADRQTimeout

	dmaEngine := dma.New(1, controller)

	sink, closeSink, err := buildAudioSink(*sdlAudio, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavepod-sim: %v\n", err)
		os.Exit(1)
	}
	defer closeSink()

	const burstBytes = 256
	pipe := pipeline.New(dmaEngine, 0, controller, intc.SourceI2S, sink, cfg.BufferFrames, cfg.Channels, burstBytes)
	pipe.Init()

	p := player.New(pipe, player.Options{OpenFile: buildOpenFile(ataCtrl)})
	p.SetVolume(cfg.DefaultVolume)

	if len(*playlist) > 0 {
		p.SetPlaylist(*playlist, 0)
		if err := p.LoadFile((*playlist)[0]); err != nil {
			fmt.Fprintf(os.Stderr, "wavepod-sim: loading %s: %v\n", (*playlist)[0], err)
		} else if !*startPaused {
			if err := p.Play(); err != nil {
				fmt.Fprintf(os.Stderr, "wavepod-sim: %v\n", err)
			}
		}
	}

	var console *hostio.Console
	if *debugConsole {
		console, err = hostio.NewConsole(func(b byte) {
			handleConsoleByte(b, p)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "wavepod-sim: %v\n", err)
			os.Exit(1)
		}
		defer console.Close()
		fmt.Fprintf(os.Stderr, "wavepod-sim: debug console on %s\n", console.SlaveName())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / tickHz)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-sigCh:
			pipe.Stop()
			return
		case now := <-ticker.C:
			elapsed := now.Sub(lastTick)
			lastTick = now
			runTick(cpu, timerSys, dmaEngine, ataCtrl, pipe, p, *cyclesPerTick, elapsed)
		}
	}
}

// runTick is one iteration of the host loop: step the CPU a budgeted
// number of cycles, advance the timer/ATA timeout counters by elapsed
// wall-clock time, drain DMA bursts, and pump the façade's main-loop
// refill. Interrupt servicing happens inside CPU.Step itself (it
// polls FIQPending/IRQPending once per step), matching spec.md §2's
// "services any asserted IRQ/FIQ lines before the next fetch."
func runTick(cpu *arm.CPU, timerSys *timer.System, dmaEngine *dma.Engine, ataCtrl *ata.Controller, pipe *pipeline.Pipeline, p *player.Player, cyclesPerTick uint, elapsed time.Duration) {
	for i := uint(0); i < cyclesPerTick; i++ {
		if err := cpu.Step(); err != nil {
			return
		}
	}
	nanos := uint64(elapsed.Nanoseconds())
	timerSys.Tick(nanos)
	ataCtrl.Tick(nanos)
	dmaEngine.Tick()
	p.Process()
}

// handleConsoleByte interprets single debug-console bytes as
// breakpoint/step-style commands against the façade: 'p' toggles
// play/pause, 's' stops, '+'/'-' nudge volume. This is intentionally
// small — a full command language is the teacher's GUI-attached
// debugger's job, out of scope here.
func handleConsoleByte(b byte, p *player.Player) {
	switch b {
	case 'p':
		_ = p.TogglePause()
	case 's':
		p.Stop()
	case '+':
		if p.Volume() <= 90 {
			p.SetVolume(int(p.Volume()) + 10)
		} else {
			p.SetVolume(100)
		}
	case '-':
		if p.Volume() >= 10 {
			p.SetVolume(int(p.Volume()) - 10)
		} else {
			p.SetVolume(0)
		}
	}
}

func openDisk(path string, sectors uint64) (ata.DiskImage, func(), error) {
	if path == "" {
		return ata.NewMemoryDisk(sectors), func() {}, nil
	}
	disk, err := ata.OpenFileDisk(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening --ata-image: %w", err)
	}
	return disk, func() { disk.Close() }, nil
}
