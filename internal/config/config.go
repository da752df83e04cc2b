// Package config reads heapcache.yaml.
//
// The file is optional. Values are looked up by dotted path, first under the
// active namespace (the CLI command name) and then at the top level, so
//
//	limit: 64
//	replay:
//	  limit: 256
//
// gives "replay" a limit of 256 and every other command 64.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for in the standard locations.
const FileName = "heapcache.yaml"

var ErrNoConfig = errors.New("no config file found in standard locations")

type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

// Config is the most recently loaded configuration.
var Config Type

// Load reads the config file and makes it the active Config. A missing file
// is reported as ErrNoConfig and leaves an empty Config with the namespace
// set, so lookups fall back to their defaults.
func Load(namespace string) (Type, error) {
	Config = Type{Namespace: namespace}

	path, err := getConfigPath()
	if err != nil {
		return Config, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Config, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	Config = Type{
		Source:    path,
		Namespace: namespace,
		Data:      data,
	}
	return Config, nil
}

// get traverses the map using a dotted key path
func (cfg *Type) get(kspec string) (any, error) {
	candidateKeys := []string{kspec}
	if cfg.Namespace != "" {
		candidateKeys = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range candidateKeys {
		var current interface{} = cfg.Data

		success := true
		for _, part := range strings.Split(key, ".") {
			m, ok := current.(map[string]interface{})
			if !ok {
				success = false
				break
			}
			current, ok = m[part]
			if !ok {
				success = false
				break
			}
		}

		if success {
			return current, nil
		}
	}

	return nil, fmt.Errorf("no valid path found among: %v", candidateKeys)
}

func GetString(key string, defaultValue ...string) (string, error) {
	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", key)
	}
	return s, nil
}

func GetInt(key string, defaultValue ...int) (int, error) {
	val, err := Config.get(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	// YAML numbers may be unmarshaled as int/float64 depending on content.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("value at %s is not an int", key)
	}
}

func getConfigPath() (string, error) {
	if p := os.Getenv("HEAPCACHE_CFG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("HEAPCACHE_CFG: %w", err)
		}
		return p, nil
	}

	candidates := []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		if fileInfo, err := os.Stat(file); err == nil && !fileInfo.IsDir() {
			log.Debugf("using config file: %s", file)
			return file, nil
		}
	}
	return "", ErrNoConfig
}
