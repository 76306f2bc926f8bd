// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strings"

	"github.com/sirupsen/logrus"
	tviewcommand "github.com/spezifisch/tview-command"
	"github.com/spezifisch/vplay/beepplayer"
	"github.com/spezifisch/vplay/clock"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/spezifisch/vplay/mpvplayer"
	"github.com/spezifisch/vplay/remote"
	"github.com/spezifisch/vplay/settings"
	"github.com/spf13/viper"
)

var osExit = os.Exit  // A variable to allow mocking os.Exit in tests
var headlessMode bool // This can be set to true during tests
var testMode bool     // This can be set to true during tests, too

const DEVELOPMENT = "development"

// Name is shown in the status bar and used as MPRIS identity
var Name string = "vplay"

// Version is the program version; usually set from BuildInfo
var Version string = DEVELOPMENT

func setDefaults() {
	viper.SetDefault("player.backend", "mpv")
	viper.SetDefault("player.seek_playback", false)
	viper.SetDefault("player.clock_interval", clock.DefaultInterval)
	viper.SetDefault("player.resample_quality", 4)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("ui.refresh_interval", "250ms")
}

// readConfig loads the config file. Without --config a missing file is fine
// and the defaults apply.
func readConfig(configFile *string) error {
	setDefaults()

	explicit := configFile != nil && *configFile != ""
	if explicit {
		// use custom config file
		viper.SetConfigFile(*configFile)
	} else {
		// lookup default dirs
		viper.SetConfigName("vplay")
		viper.SetConfigType("toml")
		viper.AddConfigPath("$HOME/.config/vplay")
		viper.AddConfigPath(".")
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && (explicit || !errors.As(err, &notFound)) {
		return fmt.Errorf("config file error: %w", err)
	}

	switch backend := viper.GetString("player.backend"); backend {
	case "mpv", "beep":
	default:
		return fmt.Errorf("config property player.backend: unknown backend %q", backend)
	}
	return nil
}

// initCommandHandler sets up tview-command as main input handler
func initCommandHandler(logger *logger.Logger) {
	tviewcommand.SetLogHandler(func(msg string) {
		logger.Print(msg)
	})

	configPath := viper.GetString("ui.keybindings")
	if configPath == "" {
		return
	}

	// Load the configuration file
	config, err := tviewcommand.LoadConfig(configPath)
	if err == nil && config == nil {
		err = errors.New("empty config")
	}
	if err != nil {
		logger.PrintError("Failed to load command-shortcut config", err)
	}
}

// mpvKeys reads player.keys entries of the form "<mpv key>=<console key>".
// Entries are added to the default bindings.
func mpvKeys(logger *logger.Logger) map[string]int {
	entries := viper.GetStringSlice("player.keys")
	if len(entries) == 0 {
		return nil
	}
	keys := mpvplayer.DefaultKeys()
	for _, entry := range entries {
		name, command, ok := strings.Cut(entry, "=")
		runes := []rune(command)
		if !ok || name == "" || len(runes) != 1 {
			logger.Printf("ignoring key binding %q", entry)
			continue
		}
		keys[name] = int(runes[0])
	}
	return keys
}

// newEngine builds the configured backend and the engine around it. window is
// nil for backends without a window.
func newEngine(path string, logger *logger.Logger) (player *engine.Engine, window *engine.WindowEngine, err error) {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithName(filepath.Base(path)),
	}

	switch backend := viper.GetString("player.backend"); backend {
	case "mpv":
		cfg := mpvplayer.Config{
			SeekPlayback: viper.GetBool("player.seek_playback"),
			Keys:         mpvKeys(logger),
			Width:        viper.GetInt("window.width"),
			Height:       viper.GetInt("window.height"),
			Options:      viper.GetStringMapString("player.mpv_options"),
		}
		window = engine.NewWindow(mpvplayer.New(path, cfg, logger), opts...)
		return window.Engine, window, nil

	case "beep":
		cfg := beepplayer.Config{
			ResampleQuality: viper.GetInt("player.resample_quality"),
		}
		return engine.New(beepplayer.New(path, cfg, logger), opts...), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// return codes:
// 0 - OK
// 1 - generic errors
// 2 - main config errors
func main() {
	// parse flags and config
	help := flag.Bool("help", false, "Print usage")
	enableMpris := flag.Bool("mpris", false, "Enable MPRIS2")
	backend := flag.String("backend", "", "playback backend, `mpv` or beep (default from config)")
	seekPlayback := flag.Bool("seek-playback", false, "emulate playback rates by seeking")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to `file`")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")
	configFile := flag.String("config", "", "use config `file`")
	version := flag.Bool("version", false, "print the vplay version and exit")

	flag.Parse()
	if *help {
		fmt.Printf("USAGE: %s <args> <media file>\n", os.Args[0])
		flag.Usage()
		osExit(0)
		return
	}
	if Version == DEVELOPMENT {
		if bi, ok := debug.ReadBuildInfo(); ok {
			Version = bi.Main.Version
		}
	}
	if *version {
		fmt.Printf("vplay %s\n", Version)
		osExit(0)
		return
	}

	// cpu/memprofile code straight from https://pkg.go.dev/runtime/pprof
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close() // error handling omitted for example
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	if *backend != "" {
		viper.Set("player.backend", *backend)
	}
	if *seekPlayback {
		viper.Set("player.seek_playback", true)
	}
	if err := readConfig(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read configuration from file '%s': %v\n", *configFile, err)
		osExit(2)
		return
	}

	logger, err := logger.New(logger.Options{
		Level: viper.GetString("log.level"),
		JSON:  viper.GetBool("log.json"),
		File:  viper.GetString("log.file"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		osExit(2)
		return
	}
	defer logger.Close()
	initCommandHandler(logger)

	if testMode {
		fmt.Println("Running in test mode for testing.")
		osExit(0x23420001)
		return
	}

	if flag.NArg() < 1 {
		fmt.Printf("USAGE: %s <args> <media file>\n", os.Args[0])
		osExit(1)
		return
	}
	mediaPath := flag.Arg(0)

	player, window, err := newEngine(mediaPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		osExit(1)
		return
	}
	logger.Backend().WithFields(logrus.Fields{
		"media":   mediaPath,
		"backend": viper.GetString("player.backend"),
	}).Info("opening media")

	// the ui listens before Init so it sees READY and early errors
	var ui *Ui
	if !headlessMode {
		ui = InitGui(mediaPath, player, window, logger)
	}

	if err := player.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open %s: %v\n", mediaPath, err)
		if viper.GetString("player.backend") == "mpv" {
			fmt.Fprintln(os.Stderr, "Is mpv installed?")
		}
		osExit(1)
		return
	}

	var store *settings.Store
	if window != nil {
		store = settings.Bind(window)
	} else {
		store = settings.Bind(player)
	}
	statePath := stateFile()
	loadState(store, statePath, logger)

	driver := clock.New(player, viper.GetDuration("player.clock_interval"), logger)
	driver.Start()

	var mprisPlayer *remote.MprisPlayer
	// init mpris2 player control (linux only but fails gracefully on other systems)
	if *enableMpris {
		mprisPlayer, err = remote.RegisterMprisPlayer(player, filepath.Base(mediaPath), logger)
		if err != nil {
			fmt.Printf("Unable to register MPRIS with DBUS: %s\n", err)
			fmt.Println("Try running without MPRIS")
			driver.Stop()
			player.Dispose()
			osExit(1)
			return
		}
	}

	if headlessMode {
		fmt.Println("Running in headless mode for testing.")
		driver.Stop()
		player.Dispose()
		osExit(0)
		return
	}

	ui.mprisPlayer = mprisPlayer
	ui.store = store
	ui.statePath = statePath
	ui.clock = driver

	// run main loop
	if err := ui.Run(); err != nil {
		panic(err)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close() // error handling omitted for example
		runtime.GC()    // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
