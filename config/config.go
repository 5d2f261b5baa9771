// Package config reads clock settings from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/vclock/timing"
)

// Environment variables read by FromEnv.
const (
	EnvAPIs = "VCLOCK_APIS"
	EnvNow  = "VCLOCK_NOW"
)

// Config selects what a clock session mocks and where it starts.
//
// A nil APIs list means every facility; an empty list means none. A nil Now
// means virtual time 0.
type Config struct {
	APIs []string `yaml:"apis"`
	Now  *int64   `yaml:"now"`
}

// Load reads a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	return Parse(data)
}

// Parse decodes a YAML config document.
func Parse(data []byte) (Config, error) {
	var c Config

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", timing.ErrInvalidArgument, err)
	}

	return c, nil
}

// FromEnv builds a config from the environment. The given dotenv files are
// loaded first, without overriding variables that are already set. With no
// files, an optional .env in the working directory is loaded.
func FromEnv(files ...string) (Config, error) {
	if err := loadDotenv(files); err != nil {
		return Config{}, err
	}

	var c Config

	if apis, ok := os.LookupEnv(EnvAPIs); ok {
		c.APIs = splitList(apis)
	}

	if now, ok := os.LookupEnv(EnvNow); ok && strings.TrimSpace(now) != "" {
		v, err := strconv.ParseInt(strings.TrimSpace(now), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be an integer, got %q",
				timing.ErrInvalidArgument, EnvNow, now)
		}

		c.Now = &v
	}

	return c, nil
}

func loadDotenv(files []string) error {
	if len(files) > 0 {
		return godotenv.Load(files...)
	}

	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func splitList(s string) []string {
	list := []string{}

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}

	return list
}

// Merge returns base with every field that is set in over replaced.
func Merge(base, over Config) Config {
	if over.APIs != nil {
		base.APIs = over.APIs
	}

	if over.Now != nil {
		base.Now = over.Now
	}

	return base
}

// Facilities validates APIs. It returns nil when APIs is nil.
func (c Config) Facilities() ([]timing.Facility, error) {
	if c.APIs == nil {
		return nil, nil
	}

	fs := make([]timing.Facility, 0, len(c.APIs))
	for _, name := range c.APIs {
		f, err := timing.ParseFacility(name)
		if err != nil {
			return nil, err
		}

		fs = append(fs, f)
	}

	return fs, nil
}

// StartTime returns Now in the form accepted by timing.Clock.Enable.
func (c Config) StartTime() any {
	if c.Now == nil {
		return nil
	}

	return *c.Now
}
