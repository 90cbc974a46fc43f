package config

import (
	"os"
	"path/filepath"
	"testing"

	"gys/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
calendar:
  calendar_id: "studio@group.calendar.google.com"
  credentials_file: "service-account.json"
firestore:
  project_id: "gys-studio"
database:
  path: "test.db"
sync:
  interval_minutes: 5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Calendar.CalendarID != "studio@group.calendar.google.com" {
		t.Errorf("expected calendar id, got %s", cfg.Calendar.CalendarID)
	}
	if cfg.Sync.IntervalMinutes != 5 {
		t.Errorf("expected sync interval 5, got %d", cfg.Sync.IntervalMinutes)
	}

	// Defaults fill in everything the file omits.
	if cfg.Calendar.Timezone != "Europe/Istanbul" {
		t.Errorf("expected default timezone, got %s", cfg.Calendar.Timezone)
	}
	if cfg.Firestore.Collections.Gelinler != "gelinler" {
		t.Errorf("expected default collection, got %s", cfg.Firestore.Collections.Gelinler)
	}
	if cfg.Sync.GraceMinutes != models.ChannelGraceMinutes {
		t.Errorf("expected default grace minutes, got %d", cfg.Sync.GraceMinutes)
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port, got %d", cfg.API.HTTP.Port)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("GYS_TEST_PROJECT", "gys-prod")

	yamlContent := `
calendar:
  calendar_id: "cal"
  credentials_file: "creds.json"
firestore:
  project_id: "${GYS_TEST_PROJECT}"
database:
  path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Firestore.ProjectID != "gys-prod" {
		t.Errorf("expected expanded project id, got %s", cfg.Firestore.ProjectID)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Calendar:  CalendarConfig{CalendarID: "cal", CredentialsFile: "creds.json"},
		Firestore: FirestoreConfig{ProjectID: "proj"},
		Database:  DatabaseConfig{Path: "gys.db"},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing calendar id", mutate: func(c *Config) { c.Calendar.CalendarID = "" }, wantErr: true},
		{name: "missing credentials", mutate: func(c *Config) { c.Calendar.CredentialsFile = "" }, wantErr: true},
		{name: "missing firestore project", mutate: func(c *Config) { c.Firestore.ProjectID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStaff(t *testing.T) {
	tests := []struct {
		name    string
		staff   []models.Staff
		wantErr bool
	}{
		{
			name:  "valid staff",
			staff: []models.Staff{{Initials: "SA", Name: "Saliha"}, {Initials: "K", Name: "Kübra"}},
		},
		{
			name:    "empty initials",
			staff:   []models.Staff{{Initials: "", Name: "Saliha"}},
			wantErr: true,
		},
		{
			name:    "duplicate initials",
			staff:   []models.Staff{{Initials: "K", Name: "Kübra"}, {Initials: "K", Name: "Kerem"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStaff(tt.staff); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStaff() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
