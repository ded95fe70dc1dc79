package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/capture"
	"murmur/cleaner"
	"murmur/clipboard"
	"murmur/config"
	"murmur/doctor"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/notify"
	"murmur/shutdown"
	"murmur/transcriber"
	"murmur/tray"
)

var version = "dev"

var shutdownOnce sync.Once

// appSink is the delivery and notification path shared by TUI and headless
// modes: clipboard delivery, tray state, beeps, desktop notifications.
type appSink struct {
	hist *history.History

	mu        sync.Mutex
	prev      Status
	delivered bool
}

func (s *appSink) StatusChanged(status Status, message string) {
	s.mu.Lock()
	prev := s.prev
	s.prev = status
	if status == StatusRecording {
		s.delivered = false
	}
	delivered := s.delivered
	s.mu.Unlock()

	tray.SetRecording(status == StatusRecording)
	switch status {
	case StatusRecording:
		// a new attempt invalidates the previous recording
		tray.EnableRetry(false)
		go beep.PlayStart()
	case StatusProcessing:
		if prev == StatusRecording {
			go beep.PlayEnd()
		}
	case StatusIdle:
		if delivered {
			tray.EnableRetry(true)
			if recent := s.hist.Recent(); len(recent) > 0 {
				tray.SetRecent(recent)
			}
		}
	case StatusError:
		go beep.PlayError()
		tray.SetError(message)
		notify.Error(message)
	}
}

func (s *appSink) LevelChanged(level float64) {}

func (s *appSink) InsertText(text string) error {
	if err := clipboard.Insert(text); err != nil {
		return err
	}
	s.mu.Lock()
	s.delivered = true
	s.mu.Unlock()
	return nil
}

func (s *appSink) CopyText(text string) error {
	if err := clipboard.Copy(text); err != nil {
		return err
	}
	s.mu.Lock()
	s.delivered = true
	s.mu.Unlock()
	return nil
}

func (s *appSink) ShowWarning(message string, duration time.Duration) {
	tray.SetWarning(true)
	notify.Warning(message)
	time.AfterFunc(duration, func() { tray.SetWarning(false) })
}

func (s *appSink) ShowErrorWithRetry(message string) {
	tray.EnableRetry(true)
	notify.Error(message)
}

func apiKeyFor(provider string) string {
	switch provider {
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return "unused"
}

func modeLineText(settings config.Settings) string {
	providerLabel := settings.Provider
	if settings.Language != "" {
		providerLabel += " (" + settings.Language + ")"
	}
	format := settings.UploadFormat
	if format == "" {
		format = "flac"
	}
	return fmt.Sprintf("[%s | %s]", format, providerLabel)
}

func deviceLineText(name string) string {
	if name == "" {
		name = "system default"
	}
	suffix := ""
	if audio.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}

func run() {
	setupFlag := flag.Bool("setup", false, "Select microphone device and save the choice")
	deviceFlag := flag.String("device", "", "Use named microphone device for this session")
	providerFlag := flag.String("provider", "", "Transcription provider: openai, groq or fake")
	langFlag := flag.String("lang", "", "Language code hint for transcription (e.g. en, es)")
	formatFlag := flag.String("format", "", "Upload format: flac or wav")
	configFlag := flag.String("config", "", "Settings file path (default: OS config dir)")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	noBeepFlag := flag.Bool("nobeep", false, "Disable audio feedback")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	configPath := *configFlag
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
			os.Exit(1)
		}
		configPath = p
	}
	store := config.NewJSONStore(configPath)
	settings, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load settings (%v), using defaults\n", err)
		settings = config.DefaultSettings()
	}

	// session-only flag overrides
	if *providerFlag != "" {
		settings.Provider = *providerFlag
	}
	if *langFlag != "" {
		settings.Language = *langFlag
	}
	if *formatFlag != "" {
		settings.UploadFormat = *formatFlag
	}
	if *deviceFlag != "" {
		settings.Microphone = *deviceFlag
	}

	if *doctorFlag {
		os.Exit(doctor.Run(settings))
	}

	// Daemonize in non-TUI mode: re-exec in background, return shell prompt
	if !*tuiFlag && os.Getenv("_MURMUR_BG") == "" {
		exe, _ := os.Executable()
		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Env = append(os.Environ(), "_MURMUR_BG=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	logDir, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not resolve log directory: %v\n", err)
	} else {
		log.SetDir(logDir)
		if err := log.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		}
	}

	if *noBeepFlag {
		beep.Disable()
	}
	if *tuiFlag {
		// the TUI shows warnings and errors itself
		notify.Disable()
	}

	if err := clipboard.Init(); err != nil {
		fmt.Printf("Warning: paste init failed: %v\n", err)
		fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	if *setupFlag {
		selected, err := audio.SelectDevice(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		settings.Microphone = ""
		if selected != nil {
			settings.Microphone = selected.Name
		}
		if err := store.Save(settings); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save settings: %v\n", err)
		}
	}

	trans, err := transcriber.New(settings.Provider, transcriber.Options{
		APIKey:   apiKeyFor(settings.Provider),
		Model:    settings.Model,
		Language: settings.Language,
		Format:   settings.UploadFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if strings.Contains(err.Error(), "API key") {
			fmt.Fprintf(os.Stderr, "Set %s_API_KEY in the environment.\n", strings.ToUpper(settings.Provider))
		}
		os.Exit(1)
	}

	var clean cleaner.Cleaner
	if settings.CleanTranscription {
		c, err := cleaner.New(os.Getenv("OPENAI_API_KEY"), settings.LLMModel,
			time.Duration(settings.CleaningTimeoutS*float64(time.Second)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleaning disabled: %v\n", err)
		} else {
			clean = c
		}
	}

	hist := history.New(settings.HistoryLimit)

	captureConfig := audio.CaptureConfig{
		SampleRate: capture.SampleRate,
		Channels:   capture.Channels,
	}
	preferred := settings.Microphone
	openDevice := func() (audio.CaptureDevice, string, error) {
		return openPreferred(ctx, preferred, captureConfig)
	}

	base := &appSink{hist: hist}
	var sink Sink = base
	if *tuiFlag {
		sink = NewTUISink(base)
	}

	coord := NewCoordinator(sink, trans, clean, hist, openDevice,
		CoordinatorConfig{
			SilenceThreshold:   settings.SilenceThreshold,
			SilentStartWindow:  time.Duration(settings.SilentStartTimeoutS * float64(time.Second)),
			MinDuration:        time.Duration(settings.MinDurationS * float64(time.Second)),
			MaxDuration:        time.Duration(settings.MaxDurationS * float64(time.Second)),
			LowercaseThreshold: lowercaseThreshold(settings),
		})

	// The program starts only after the coordinator exists, so the key
	// handlers are method values on a fully built coordinator.
	if *tuiFlag {
		prog := NewTUIProgram(coord.Toggle, coord.Cancel, coord.RetryLast)
		tuiMu.Lock()
		tuiProgram = prog
		tuiMu.Unlock()

		go func() {
			if _, err := prog.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown(coord)
		}()
	}

	trayQuit := tray.Run(tray.Callbacks{
		OnToggle:    func() { coord.Toggle() },
		OnRetryLast: func() { coord.RetryLast() },
		OnCopyLast: func() {
			if text := hist.Last(); text != "" {
				if err := clipboard.Copy(text); err != nil {
					log.Errorf("copying last transcription: %v", err)
				}
			}
		},
		OnCopyRecent: func(text string) {
			if err := clipboard.Copy(text); err != nil {
				log.Errorf("copying transcription: %v", err)
			}
		},
	})

	go beep.Init()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	tuiSend(ModeLineMsg{Text: modeLineText(settings)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(settings.Microphone)})

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)

	for {
		select {
		case <-hk.Toggled():
			coord.Toggle()
		case <-sigChan:
			gracefulShutdown(coord)
		case <-trayQuit:
			gracefulShutdown(coord)
		}
	}
}

func gracefulShutdown(coord *Coordinator) {
	shutdownOnce.Do(func() {
		if coord != nil {
			coord.Cancel()
			if err := coord.WaitIdle(2 * time.Second); err != nil {
				log.Warnf("shutdown: %v", err)
			}
		}
		log.Close()
		tray.Quit()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

// openPreferred opens the configured capture device, falling back to the
// system default when the preferred one is missing or fails to open.
func openPreferred(ctx audio.Context, preferred string, cfg audio.CaptureConfig) (audio.CaptureDevice, string, error) {
	info := audio.ResolveByName(ctx, preferred)
	if info == nil && preferred != "" {
		log.Warnf("device %q not found, using system default", preferred)
	}
	name := "system default"
	if info != nil {
		name = info.Name
	}
	dev, err := ctx.NewCapture(info, cfg)
	if err != nil && info != nil {
		log.Warnf("opening %q failed (%v), using system default", info.Name, err)
		name = "system default"
		dev, err = ctx.NewCapture(nil, cfg)
	}
	return dev, name, err
}

func lowercaseThreshold(settings config.Settings) int {
	if !settings.LowercaseShort {
		return 0
	}
	return settings.LowercaseThreshold
}
