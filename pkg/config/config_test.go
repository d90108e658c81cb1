package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	s.valid = true
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "records")
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: ${CONFIG_TEST_NAME}\nport: 81\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "records" || s.Port != 81 || !s.valid {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Missing(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional_MissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if read {
		t.Error("reported missing file as read")
	}
	if s.Name != "default" || !s.valid {
		t.Errorf("got %+v", s)
	}
}

func TestLoadOptional_ValidatesDefaults(t *testing.T) {
	var s sample
	if _, err := LoadOptional("", &s); err == nil {
		t.Fatal("expected validation error")
	}
}
