package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequiresCodeAndTest(t *testing.T) {
	rootCmd.SetArgs([]string{"run", "--language", "python"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRunReportsUnreadableFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.py")
	rootCmd.SetArgs([]string{"run", "--code", missing, "--test", missing})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading code")
}

func TestExitErrorCarriesCode(t *testing.T) {
	var err error = exitError{code: 1}
	var ee exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 1, ee.code)
	assert.Equal(t, "exit status 1", err.Error())
}
