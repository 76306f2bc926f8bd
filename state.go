// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spezifisch/vplay/logger"
	"github.com/spezifisch/vplay/settings"
	"github.com/spf13/viper"
)

const stateFileName = "state.toml"

// stateFile is player.state_file, or state.toml next to the config file in use.
func stateFile() string {
	if path := viper.GetString("player.state_file"); path != "" {
		return path
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Join(filepath.Dir(used), stateFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "vplay", stateFileName)
	}
	return stateFileName
}

// loadState applies the saved settings; a missing file is not an error.
func loadState(store *settings.Store, path string, logger logger.LoggerInterface) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		logger.PrintError("loadState", err)
		return
	}
	defer f.Close()

	if err := store.LoadSettings(f); err != nil {
		logger.PrintError("loadState", err)
		return
	}
	logger.Printf("settings loaded from %s", path)
}

func saveState(store *settings.Store, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}
	if err := store.StoreSettings(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
