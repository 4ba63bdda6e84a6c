package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBlobRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// Arbitrary text, including bytes the parser would choke on if it
	// tried to interpret the blob
	text := "OPENAI_API_KEY=sk-test\n# comment\nWEIRD LINE WITHOUT EQUALS\n\tindented\n"

	if err := store.WriteBlob(text); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	got, err := store.ReadBlob()
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if got != text {
		t.Errorf("round trip changed content:\n got %q\nwant %q", got, text)
	}
}

func TestReadBlobSeedsDefault(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	got, err := store.ReadBlob()
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if got == "" {
		t.Error("first read should seed the default template, got empty blob")
	}

	// The seed must now exist on disk
	if _, err := os.Stat(store.BlobPath()); err != nil {
		t.Errorf("blob file not created: %v", err)
	}
}

func TestStageCopiesVerbatim(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	text := "OPENAI_API_KEY=abc\nDEBUG_MODE=1\n"
	if err := store.WriteBlob(text); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	appDir := t.TempDir()
	if err := store.Stage(appDir); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	staged, err := os.ReadFile(filepath.Join(appDir, "env", ".env"))
	if err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if string(staged) != text {
		t.Errorf("staged copy differs:\n got %q\nwant %q", string(staged), text)
	}
}

func TestSetBlobValue(t *testing.T) {
	tests := []struct {
		name  string
		blob  string
		key   string
		value string
		want  string
	}{
		{
			name:  "replaces existing key",
			blob:  "# header\nOPENAI_API_KEY=old\nDEBUG_MODE=0\n",
			key:   "OPENAI_API_KEY",
			value: "new",
			want:  "# header\nOPENAI_API_KEY=new\nDEBUG_MODE=0\n",
		},
		{
			name:  "appends missing key",
			blob:  "OPENAI_API_KEY=x\n",
			key:   "DEBUG_MODE",
			value: "1",
			want:  "OPENAI_API_KEY=x\nDEBUG_MODE=1\n",
		},
		{
			name:  "leaves comments untouched",
			blob:  "# DEBUG_MODE=9\nDEBUG_MODE=0\n",
			key:   "DEBUG_MODE",
			value: "1",
			want:  "# DEBUG_MODE=9\nDEBUG_MODE=1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if err := store.WriteBlob(tt.blob); err != nil {
				t.Fatalf("WriteBlob: %v", err)
			}
			if err := store.SetBlobValue(tt.key, tt.value); err != nil {
				t.Fatalf("SetBlobValue: %v", err)
			}
			got, err := store.ReadBlob()
			if err != nil {
				t.Fatalf("ReadBlob: %v", err)
			}
			if got != tt.want {
				t.Errorf("SetBlobValue result:\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatdock.yaml")

	s := Settings{
		Name:       "chatdock",
		Port:       8123,
		RunCommand: "chainlit run main.py --port 8123",
		AppDir:     "/opt/chat",
	}
	if err := WriteSettings(path, s); err != nil {
		t.Fatalf("WriteSettings: %v", err)
	}

	got, err := ReadSettings(path)
	if err != nil {
		t.Fatalf("ReadSettings: %v", err)
	}
	if got.Name != s.Name || got.Port != s.Port || got.RunCommand != s.RunCommand || got.AppDir != s.AppDir {
		t.Errorf("ReadSettings = %+v, want %+v", got, s)
	}
}

func TestReadSettingsRejectsBadPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatdock.yaml")
	if err := os.WriteFile(path, []byte("name: chatdock\nport: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSettings(path); err == nil {
		t.Error("ReadSettings accepted a negative port")
	}
}

func TestParseEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nOPENAI_API_KEY=\"sk-123\"\nDEBUG_MODE=1\n\nBROKEN LINE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	vars, err := ParseEnv(path)
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if vars["OPENAI_API_KEY"] != "sk-123" {
		t.Errorf("OPENAI_API_KEY = %q, want sk-123 (quotes stripped)", vars["OPENAI_API_KEY"])
	}
	if vars["DEBUG_MODE"] != "1" {
		t.Errorf("DEBUG_MODE = %q, want 1", vars["DEBUG_MODE"])
	}
	if len(vars) != 2 {
		t.Errorf("ParseEnv returned %d vars, want 2", len(vars))
	}
}
