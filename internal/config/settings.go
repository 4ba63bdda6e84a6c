package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the launcher configuration read from chatdock.yaml.
// It describes where the chat application lives and how to start it;
// everything the chat application itself reads comes from the opaque
// env blob, not from here.
type Settings struct {
	Name        string `yaml:"name"`
	Port        int    `yaml:"port,omitempty"`
	RunCommand  string `yaml:"run,omitempty"`
	AppDir      string `yaml:"app_dir,omitempty"`
	RuntimeHome string `yaml:"runtime_home,omitempty"`
	Viewer      string `yaml:"viewer,omitempty"`
}

// DefaultPort is the port the chat application serves on.
const DefaultPort = 8000

// DefaultSettings returns the settings used when no chatdock.yaml exists.
func DefaultSettings() Settings {
	return Settings{
		Name:       "chatdock",
		Port:       DefaultPort,
		RunCommand: "chainlit run main.py --headless --host 127.0.0.1 --port 8000",
	}
}

// WriteSettings writes the settings as a YAML file.
func WriteSettings(path string, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// Marshal the settings to YAML
	data, err := yaml.Marshal(&s)
	if err != nil {
		return err
	}

	// Write the YAML content
	_, err = f.Write(data)
	return err
}

// ReadSettings reads a YAML file and extracts the settings fields.
// Missing fields fall back to the defaults; a missing file is an error
// the caller may choose to translate into DefaultSettings.
func ReadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}

	if s.Name == "" {
		return Settings{}, errors.New("invalid configuration: missing name")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return Settings{}, errors.New("invalid configuration: port out of range")
	}

	return s, nil
}
