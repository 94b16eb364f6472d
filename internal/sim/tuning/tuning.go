package tuning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Tuning is the server-wide configuration read from config.yaml. Fields
// tagged env can be overridden from the environment.
type Tuning struct {
	Hostname string `yaml:"hostname" env:"AO_HOSTNAME"`
	MOTD     string `yaml:"motd" env:"AO_MOTD"`
	ModPass  string `yaml:"modpass" env:"AO_MODPASS"`

	// Port is the public TCP port advertised to the directory.
	Port        int  `yaml:"port" env:"AO_PORT"`
	PlayerLimit int  `yaml:"playerlimit" env:"AO_PLAYER_LIMIT"`
	TimeoutSec  int  `yaml:"timeout" env:"AO_TIMEOUT"`
	Debug       bool `yaml:"debug" env:"AO_DEBUG"`

	// AreaSwitchSoftware is the client software required to change areas.
	// Empty allows every client.
	AreaSwitchSoftware string `yaml:"area_switch_software" env:"AO_AREA_SWITCH_SOFTWARE"`

	Directory Directory `yaml:"directory"`
}

type Directory struct {
	Enabled     bool   `yaml:"enabled" env:"AO_DIRECTORY_ENABLED"`
	Addr        string `yaml:"addr" env:"AO_DIRECTORY_ADDR"`
	Port        int    `yaml:"port" env:"AO_DIRECTORY_PORT"`
	Name        string `yaml:"name" env:"AO_DIRECTORY_NAME"`
	Description string `yaml:"description" env:"AO_DIRECTORY_DESCRIPTION"`
}

func (d Directory) Address() string { return net.JoinHostPort(d.Addr, strconv.Itoa(d.Port)) }

func Defaults() Tuning {
	return Tuning{
		Hostname:           "$H",
		MOTD:               "Welcome to the courtroom.",
		Port:               27016,
		PlayerLimit:        100,
		TimeoutSec:         250,
		AreaSwitchSoftware: "AOClassic",
		Directory: Directory{
			Addr:        "master.aceattorneyonline.com",
			Port:        27016,
			Name:        "courtroom",
			Description: "An Attorney Online server.",
		},
	}
}

func (t Tuning) Timeout() time.Duration { return time.Duration(t.TimeoutSec) * time.Second }

func (t Tuning) Validate() error {
	if t.Hostname == "" {
		return errors.New("hostname must not be empty")
	}
	if t.PlayerLimit <= 0 {
		return fmt.Errorf("playerlimit must be > 0 (got %d)", t.PlayerLimit)
	}
	if t.TimeoutSec <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %d)", t.TimeoutSec)
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("port out of range (got %d)", t.Port)
	}
	if t.Directory.Enabled {
		if t.Directory.Addr == "" {
			return errors.New("directory.addr must not be empty when enabled")
		}
		if t.Directory.Port <= 0 || t.Directory.Port > 65535 {
			return fmt.Errorf("directory.port out of range (got %d)", t.Directory.Port)
		}
	}
	return nil
}

// Load reads path over Defaults, applies environment overrides and
// validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("config.yaml: %w", err)
	}
	if err := env.Parse(&t); err != nil {
		return t, fmt.Errorf("config.yaml: parse env: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("config.yaml: %w", err)
	}
	return t, nil
}

// Watch reloads path whenever it changes and hands every valid result to
// onChange. Invalid edits are logged and ignored. It returns when ctx ends.
func Watch(ctx context.Context, path string, onChange func(Tuning), logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			t, err := Load(path)
			if err != nil {
				logger.Printf("config reload rejected: %v", err)
				continue
			}
			logger.Printf("config reloaded: %s", path)
			onChange(t)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Printf("config watcher error: %v", err)
		}
	}
}
