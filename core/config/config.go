package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/smallsh/core/ttylog"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

type Configuration struct {
	configFs afero.Fs

	Prompt         string `json:"prompt" validate:"required"`
	ForegroundOnly bool   `json:"foreground_only"`
	Color          string `json:"color" validate:"oneof=always auto never"`

	Log Log `json:"log"`

	TranscriptDir string `json:"transcript_dir"`
}

type Log struct {
	Level string `json:"level" validate:"oneof=trace debug info warn error"`
	File  string `json:"file" validate:"required"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	if dir := filepath.Dir(c.Log.File); dir != "." {
		if err := c.fs().MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}
	return c.fs().OpenFile(c.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(c.Log.File, os.O_RDONLY, 0600)
}

// TranscriptsEnabled reports whether sessions should be recorded.
func (c *Configuration) TranscriptsEnabled() bool {
	return c.TranscriptDir != ""
}

// CreateTranscript creates a session transcript with the given name.
func (c *Configuration) CreateTranscript(name string) (afero.File, error) {
	if err := c.fs().MkdirAll(c.TranscriptDir, 0700); err != nil {
		return nil, err
	}
	toCreate := filepath.Join(c.TranscriptDir, name+"."+ttylog.AsciicastFileExt)
	return c.fs().Create(toCreate)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration backed by an in-memory
// filesystem, used when no configuration directory exists.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}
