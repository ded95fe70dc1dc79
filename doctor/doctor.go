// Package doctor runs interactive environment checks: hotkey, microphone,
// transcription round trip and keystroke injection.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"murmur/audio"
	"murmur/capture"
	"murmur/clipboard"
	"murmur/config"
	"murmur/hotkey"
	"murmur/transcriber"
)

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(settings config.Settings) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("murmur doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	allPass := true

	if !checkHotkey() {
		allPass = false
	}
	var recording string
	if allPass {
		var ok bool
		recording, ok = checkMicrophone(settings)
		if !ok {
			allPass = false
		}
	}
	if allPass && !checkTranscription(settings, recording) {
		allPass = false
	}
	if allPass && !checkPaste() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[1/4] Hotkey detection")

	if msg, err := hotkey.Diagnose(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	} else {
		fmt.Printf("  %s\n", msg)
	}

	fmt.Println("Press Ctrl+Shift+Space...")
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Toggled():
		fmt.Println("  PASS: hotkey detected")
		// hotkey backends may leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicrophone(settings config.Settings) (string, bool) {
	fmt.Println()
	fmt.Println("[2/4] Microphone capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return "", false
	}
	defer ctx.Close()

	device, err := pickDevice(ctx, settings.Microphone)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return "", false
	}
	name := "system default"
	if device != nil {
		name = device.Name
	}
	fmt.Printf("Using device: %s\n", name)

	dev, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: capture.SampleRate,
		Channels:   capture.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: cannot open device: %v\n", err)
		return "", false
	}
	defer dev.Close()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	path := capture.TempPath()
	session := capture.NewSession(dev, path, capture.Config{
		SilenceThreshold: settings.SilenceThreshold,
	})
	if err := session.Start(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return "", false
	}
	time.Sleep(3 * time.Second)
	summary, err := session.Stop()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return "", false
	}

	fmt.Printf("  Recorded %.1fs, peak RMS %.3f\n", summary.Duration.Seconds(), summary.PeakRMS)
	if err := capture.Analyze(path, time.Second, settings.SilenceThreshold); err != nil {
		fmt.Printf("  FAIL: %v (is the right microphone selected?)\n", err)
		return "", false
	}

	fmt.Println("  PASS: speech detected")
	return path, true
}

func checkTranscription(settings config.Settings, recording string) bool {
	fmt.Println()
	fmt.Println("[3/4] Transcription round trip")

	provider := settings.Provider
	apiKey := apiKeyFor(provider)
	if apiKey == "" && provider != "fake" {
		fmt.Printf("  FAIL: no API key for %s in environment\n", provider)
		return false
	}

	trans, err := transcriber.New(provider, transcriber.Options{
		APIKey:   apiKey,
		Model:    settings.Model,
		Language: settings.Language,
		Format:   settings.UploadFormat,
	})
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	fmt.Printf("  Transcribing with %s...\n", trans.Name())
	text, err := trans.Transcribe(context.Background(), recording)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}
	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func checkPaste() bool {
	fmt.Println()
	fmt.Println("[4/4] Keystroke output")

	if err := clipboard.Init(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}
	fmt.Println("  PASS: key injection ready")
	return true
}

func pickDevice(ctx audio.Context, preferred string) (*audio.DeviceInfo, error) {
	if preferred != "" {
		if d := audio.ResolveByName(ctx, preferred); d != nil {
			return d, nil
		}
		fmt.Printf("  configured device %q not found, using default\n", preferred)
	}
	return nil, nil
}

func apiKeyFor(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	}
	return ""
}
