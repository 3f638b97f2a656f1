package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVersionFile(t *testing.T) {
	origVersion, origBuild, origCommit := Version, Build, GitCommit
	t.Cleanup(func() { Version, Build, GitCommit = origVersion, origBuild, origCommit })
	Version, Build, GitCommit = "dev", "unknown", "unknown"

	path := filepath.Join(t.TempDir(), ".version")
	content := "# release\nversion: 0.3.1\nbuild: 2026-10-01\ncommit: abc1234\nbogus line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loadVersionFile(path)

	assert.Equal(t, "0.3.1", GetVersion())
	assert.Equal(t, "0.3.1 (build: 2026-10-01, commit: abc1234)", GetFullVersion())
}

func TestLoadVersionFile_LdflagsWin(t *testing.T) {
	origVersion := Version
	t.Cleanup(func() { Version = origVersion })
	Version = "1.0.0"

	path := filepath.Join(t.TempDir(), ".version")
	require.NoError(t, os.WriteFile(path, []byte("version: 0.0.1\n"), 0o644))

	loadVersionFile(path)
	assert.Equal(t, "1.0.0", Version)
}

func TestLoadVersionFile_Missing(t *testing.T) {
	loadVersionFile(filepath.Join(t.TempDir(), "absent"))
}
