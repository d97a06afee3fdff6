// Package config loads the dicomctl YAML settings file
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jpfielding/dicomctl.go/pkg/dimse/pdu"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when --config is not given
const DefaultPath = "~/.dicomctl.yaml"

// DICOM holds the remote SCP and local AE settings
type DICOM struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CalledAE       string        `yaml:"called_ae"`
	CallingAE      string        `yaml:"calling_ae"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	DIMSETimeout   time.Duration `yaml:"dimse_timeout"`
	MaxPDU         uint32        `yaml:"max_pdu"`
}

// Orthanc holds the REST server settings
type Orthanc struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Modality string        `yaml:"modality"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Log holds logger settings
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

type Config struct {
	DICOM   DICOM   `yaml:"dicom"`
	Orthanc Orthanc `yaml:"orthanc"`
	Log     Log     `yaml:"log"`
}

// Default returns the built in settings
func Default() Config {
	return Config{
		DICOM: DICOM{
			Host:           "10.10.0.1",
			Port:           4242,
			CalledAE:       "MERCURE",
			CallingAE:      "BEXA",
			ConnectTimeout: 30 * time.Second,
			DIMSETimeout:   300 * time.Second,
			MaxPDU:         16384,
		},
		Orthanc: Orthanc{
			URL:      "http://localhost:8042",
			Modality: "orthanc",
			Timeout:  30 * time.Second,
		},
		Log: Log{Level: "INFO"},
	}
}

// Expand resolves a leading ~ to the user's home directory
func Expand(path string) string {
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}

// Load reads path over the defaults. An empty path means DefaultPath, which
// may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	path = Expand(path)
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	slog.Debug("loaded config", slog.String("path", path))
	return cfg, nil
}

// Validate checks ranges the network layers depend on
func (c Config) Validate() error {
	var errs []error
	if c.DICOM.Port < 1 || c.DICOM.Port > 65535 {
		errs = append(errs, fmt.Errorf("dicom.port %d out of range", c.DICOM.Port))
	}
	for name, ae := range map[string]string{"dicom.called_ae": c.DICOM.CalledAE, "dicom.calling_ae": c.DICOM.CallingAE} {
		if err := pdu.ValidateAETitle(ae); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.DICOM.ConnectTimeout < 0 || c.DICOM.DIMSETimeout < 0 {
		errs = append(errs, errors.New("dicom timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
