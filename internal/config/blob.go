package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// The env blob is the chat application's env/.env file. chatdock never
// interprets it: it is read, written, and staged into the application
// directory byte for byte. ParseEnv exists only for doctor diagnostics.

// defaultBlob seeds the env file on first run.
const defaultBlob = `# Environment for the chat application
# Managed by chatdock; edit values freely.

OPENAI_API_KEY=
DEBUG_MODE=0
`

// Store locates the launcher's files under one data directory.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir. An empty dir selects the
// user's config directory (e.g. ~/.config/chatdock).
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "chatdock")
	}
	if err := os.MkdirAll(filepath.Join(dir, "env"), 0o755); err != nil {
		return nil, err
	}
	return &Store{Dir: dir}, nil
}

// SettingsPath returns the location of chatdock.yaml.
func (s *Store) SettingsPath() string {
	return filepath.Join(s.Dir, "chatdock.yaml")
}

// BlobPath returns the location of the managed env file.
func (s *Store) BlobPath() string {
	return filepath.Join(s.Dir, "env", ".env")
}

// LogPath returns the location of the subprocess log sink.
func (s *Store) LogPath() string {
	return filepath.Join(s.Dir, "chatdock.log")
}

// Paths returns the three fixed locations for display to the user:
// settings file, env file, log file.
func (s *Store) Paths() (settings, blob, log string) {
	return s.SettingsPath(), s.BlobPath(), s.LogPath()
}

// ReadBlob returns the env blob verbatim. A missing file is seeded with
// the default template first; any other read failure degrades to an
// empty blob so a launch can still proceed.
func (s *Store) ReadBlob() (string, error) {
	data, err := os.ReadFile(s.BlobPath())
	if err != nil {
		if os.IsNotExist(err) {
			if werr := s.WriteBlob(defaultBlob); werr != nil {
				return "", werr
			}
			return defaultBlob, nil
		}
		return "", err
	}
	return string(data), nil
}

// WriteBlob persists the env blob verbatim.
func (s *Store) WriteBlob(text string) error {
	if err := os.MkdirAll(filepath.Dir(s.BlobPath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.BlobPath(), []byte(text), 0o600)
}

// Stage copies the current env blob into the chat application's
// directory (appDir/env/.env), where the application expects it. The
// copy is byte-identical; a missing blob stages the seeded default.
func (s *Store) Stage(appDir string) error {
	text, err := s.ReadBlob()
	if err != nil {
		return err
	}
	dst := filepath.Join(appDir, "env", ".env")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(text), 0o600)
}

// SetBlobValue updates one KEY=value line in the blob, preserving every
// other byte (comments, blank lines, ordering). A key not present is
// appended at the end.
func (s *Store) SetBlobValue(key, value string) error {
	text, err := s.ReadBlob()
	if err != nil {
		return err
	}

	lines := strings.Split(text, "\n")
	replaced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		parts := strings.SplitN(trimmed, "=", 2)
		if len(parts) == 2 && strings.TrimSpace(parts[0]) == key {
			lines[i] = key + "=" + value
			replaced = true
			break
		}
	}
	if !replaced {
		// Keep a trailing newline after the appended entry
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		lines = append(lines, key+"="+value, "")
	}

	return s.WriteBlob(strings.Join(lines, "\n"))
}

// ParseEnv reads an env file and returns defined variables
func ParseEnv(envPath string) (map[string]string, error) {
	vars := make(map[string]string)

	file, err := os.Open(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return vars, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			// Remove quotes if present
			value = strings.Trim(value, `"'`)
			vars[key] = value
		}
	}

	return vars, scanner.Err()
}
