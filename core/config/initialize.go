package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Initialize writes a default configuration into dir.
func Initialize(dir string, logger zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// InitializeFs writes a default configuration at the root of fsys. An
// existing configuration is left untouched.
func InitializeFs(fsys afero.Fs, logger zerolog.Logger) error {
	switch _, err := fsys.Stat(ConfigurationName); {
	case err == nil:
		logger.Info().Str("file", ConfigurationName).Msg("configuration exists, skipping")
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	logger.Info().Str("file", ConfigurationName).Msg("writing default configuration")
	return afero.WriteFile(fsys, ConfigurationName, defaultConfigData, 0600)
}
