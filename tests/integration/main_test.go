package integration

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "tablestore-test-*")
	if err != nil {
		os.Exit(1)
	}
	if err := BuildBinary(tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}
