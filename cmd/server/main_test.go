package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigFile(t *testing.T, path string) {
	t.Helper()
	viper.Reset()
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})
}

func TestInitConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "stock.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("http:\n  address: \":9090\"\n"), 0o600))
	malformed := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("http: [unclosed\n"), 0o600))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid file is read", valid, false},
		{"missing file fails", filepath.Join(dir, "missing.yaml"), true},
		{"malformed file fails", malformed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfigFile(t, tt.path)

			err := initConfig()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ":9090", viper.GetString("http.address"))
		})
	}
}

func TestInitConfig_NoFileIsOptional(t *testing.T) {
	useConfigFile(t, "")
	assert.NoError(t, initConfig())
}
