package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.URL != "http://localhost:5000" {
			t.Errorf("expected api url http://localhost:5000, got %s", config.API.URL)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Database.Path != "./facescan.db" {
			t.Errorf("expected database path ./facescan.db, got %s", config.Database.Path)
		}

		if config.Google.RedirectURI != "http://localhost:3000/callback" {
			t.Errorf("expected redirect uri http://localhost:3000/callback, got %s", config.Google.RedirectURI)
		}

		if config.Log.Level != "info" {
			t.Errorf("expected log level info, got %s", config.Log.Level)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[api]
url = "https://scanner.example.com"

[google]
client_id = "test_client_id.apps.googleusercontent.com"
client_secret = "test_secret"

[server]
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.URL != "https://scanner.example.com" {
			t.Errorf("expected api url https://scanner.example.com, got %s", config.API.URL)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected unset host to keep default, got %s", config.Server.Host)
		}
		if config.Google.ClientID != "test_client_id.apps.googleusercontent.com" {
			t.Errorf("expected client id to be loaded, got %s", config.Google.ClientID)
		}
	})

	t.Run("LoadConfig With Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[api\nurl = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig With Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Google.ClientID = "saved-id"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("SaveConfig() error = %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if loaded.Google.ClientID != "saved-id" {
			t.Errorf("expected saved client id, got %s", loaded.Google.ClientID)
		}
	})
}

func TestConfigApplyEnv(t *testing.T) {
	env := func(m map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := m[k]
			return v, ok
		}
	}

	t.Run("API_URL overrides file value", func(t *testing.T) {
		config := DefaultConfig()
		config.ApplyEnv(env(map[string]string{"API_URL": "http://backend:9000/"}))

		if config.API.URL != "http://backend:9000" {
			t.Errorf("expected trimmed API_URL, got %s", config.API.URL)
		}
	})

	t.Run("REACT_APP names are accepted", func(t *testing.T) {
		config := DefaultConfig()
		config.ApplyEnv(env(map[string]string{
			"REACT_APP_API_URL":          "http://react:5000",
			"REACT_APP_GOOGLE_CLIENT_ID": "react-client",
		}))

		if config.API.URL != "http://react:5000" {
			t.Errorf("expected REACT_APP_API_URL, got %s", config.API.URL)
		}
		if config.Google.ClientID != "react-client" {
			t.Errorf("expected REACT_APP_GOOGLE_CLIENT_ID, got %s", config.Google.ClientID)
		}
	})

	t.Run("plain names win over REACT_APP names", func(t *testing.T) {
		config := DefaultConfig()
		config.ApplyEnv(env(map[string]string{
			"API_URL":           "http://plain:5000",
			"REACT_APP_API_URL": "http://react:5000",
		}))

		if config.API.URL != "http://plain:5000" {
			t.Errorf("expected API_URL to win, got %s", config.API.URL)
		}
	})

	t.Run("empty api url falls back to default", func(t *testing.T) {
		config := DefaultConfig()
		config.API.URL = ""
		config.ApplyEnv(env(map[string]string{"API_URL": "   "}))

		if config.API.URL != DefaultAPIURL {
			t.Errorf("expected default api url, got %s", config.API.URL)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials without client id, got %v", err)
	}

	config.Google.ClientID = "id"
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	config.Google.RedirectURI = ""
	if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without redirect uri, got %v", err)
	}
}

func TestServerConfigAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 3000}
	if got := s.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr() = %s, want 127.0.0.1:3000", got)
	}
}
