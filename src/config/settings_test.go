package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.Prompt.DefaultMode != "SFW" {
		t.Errorf("DefaultMode = %q, want SFW", settings.Prompt.DefaultMode)
	}
	if settings.Prompt.MaxLength != 1000 {
		t.Errorf("MaxLength = %d, want 1000", settings.Prompt.MaxLength)
	}
	if settings.Templates.Backend != BackendFile {
		t.Errorf("Backend = %q, want %q", settings.Templates.Backend, BackendFile)
	}
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, s *Settings)
		wantErr bool
	}{
		{
			name: "overrides merge over defaults",
			content: `
[prompt]
default_mode = "nsfw"

[templates]
backend = "libsql"
database = "/tmp/t.db"
`,
			check: func(t *testing.T, s *Settings) {
				if s.Prompt.DefaultMode != "NSFW" {
					t.Errorf("DefaultMode = %q, want NSFW", s.Prompt.DefaultMode)
				}
				if s.Prompt.MaxLength != 1000 {
					t.Errorf("MaxLength = %d, want default 1000", s.Prompt.MaxLength)
				}
				if s.Templates.Backend != BackendLibSQL {
					t.Errorf("Backend = %q, want libsql", s.Templates.Backend)
				}
				if s.Templates.Database != "/tmp/t.db" {
					t.Errorf("Database = %q", s.Templates.Database)
				}
			},
		},
		{
			name:    "unknown mode",
			content: "[prompt]\ndefault_mode = \"maybe\"\n",
			wantErr: true,
		},
		{
			name:    "unknown backend",
			content: "[templates]\nbackend = \"s3\"\n",
			wantErr: true,
		},
		{
			name:    "malformed toml",
			content: "[prompt\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			s, err := LoadSettings(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a", "b")
	if err := EnsureDirs(a, ""); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	if info, err := os.Stat(a); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be a directory", a)
	}
}
