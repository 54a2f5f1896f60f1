package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads each existing file into the process environment.
// Variables already set win over file contents, and earlier files win over
// later ones.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("could not load env file", "path", p, "error", err)
		}
	}
}
