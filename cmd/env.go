package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/compresr/glm-usage-monitor/internal/config"
)

// envFiles lists the .env files read at startup, in order.
func envFiles() []string {
	files := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".config", config.AppName, ".env"))
	}
	return files
}

// loadEnvFiles loads every existing .env file. Variables already set in the
// environment win, and so do earlier files.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("env: failed to load file")
			continue
		}
		log.Debug().Str("path", path).Msg("env: loaded file")
	}
}
