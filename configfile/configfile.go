// Package configfile loads and saves per-application configuration documents.
// A document is a flat key/value object of supported scalars; the codec is
// chosen by file extension (.json, .yaml, .yml).
package configfile

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/variant"
)

// Extensions recognized by the broker's directory scan, in eligibility order.
var Extensions = []string{".json", ".yaml", ".yml"}

// Eligible reports whether path has a recognized configuration extension
func Eligible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// AppName derives the application name from a configuration file path: the
// base name with the extension stripped.
func AppName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads and decodes the configuration document at path.
// Fails with ErrNotFound when the file is absent, ErrParse when the content
// is not a valid key/value document, and ErrUnsupportedType when any value is
// a non-scalar.
func Load(path string) (variant.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrNotFound, path),
				"configfile", "Load", "open file")
		}
		return nil, errors.Wrap(err, "configfile", "Load", "read file")
	}

	m := variant.Map{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		// Per-value type rejections keep their kind; everything else is a
		// malformed document.
		if stderrors.Is(err, errors.ErrUnsupportedType) {
			return nil, err
		}
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s: %v", errors.ErrParse, path, err),
			"configfile", "Load", "decode document")
	}

	return m, nil
}

// Save serializes m as an indented document and overwrites path.
// Callers on the configuration change path log and swallow the returned
// error: a write failure never blocks a change from taking effect in memory.
func Save(path string, m variant.Map) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "    ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return errors.Wrap(err, "configfile", "Save", "encode document")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "configfile", "Save", "write file")
	}
	return nil
}

// CreateDefault implements the first-run policy: when no file exists at path,
// or force is set, a file is created from defaults (creating parent
// directories as needed) and created is true. Otherwise the existing file is
// left untouched.
func CreateDefault(path string, defaults variant.Map, force bool) (created bool, err error) {
	if !force {
		if _, statErr := os.Stat(path); statErr == nil {
			return false, nil
		} else if !stderrors.Is(statErr, fs.ErrNotExist) {
			return false, errors.Wrap(statErr, "configfile", "CreateDefault", "stat file")
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.WrapFatal(err, "configfile", "CreateDefault", "create parent directory")
	}

	if err := Save(path, defaults); err != nil {
		return false, err
	}
	return true, nil
}

// ExpandHome expands a leading "~/" to the current user's home directory.
// Paths without the prefix are returned unchanged.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapFatal(err, "configfile", "ExpandHome", "resolve home directory")
	}
	return filepath.Join(home, path[2:]), nil
}
