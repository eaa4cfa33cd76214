package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"empty backend", Config{DataDir: "/tmp/data"}, ErrBackendEmpty},
		{"unknown backend", Config{Backend: "cassandra", DataDir: "/tmp/data"}, ErrBackendUnknown},
		{"sqlite", Config{Backend: BackendSQLite, DataDir: "/tmp/data"}, nil},
		{"sqlite without data dir", Config{Backend: BackendSQLite}, nil},
		{"sqlite with busy timeout", Config{Backend: BackendSQLite, SQLite: SQLiteConfig{BusyTimeoutMS: 50}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSQLiteConfigBusyTimeout(t *testing.T) {
	assert.Equal(t, DefaultBusyTimeoutMS, SQLiteConfig{}.GetBusyTimeoutMS())
	assert.Equal(t, DefaultBusyTimeoutMS, SQLiteConfig{BusyTimeoutMS: -1}.GetBusyTimeoutMS())
	assert.Equal(t, 250, SQLiteConfig{BusyTimeoutMS: 250}.GetBusyTimeoutMS())
}
