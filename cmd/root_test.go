package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fbz-tec/crudx/core/crud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crudx runs the CLI against a SQLite file in dir and returns the exit code
// and stdout.
func crudx(t *testing.T, dir string, args ...string) (int, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-q", "-b", "sqlite", "-e", filepath.Join(dir, "test.db")}, args...)
	code := run(full, &out, &errOut)
	return code, out.String()
}

func TestCLI_Scenario(t *testing.T) {
	dir := t.TempDir()

	code, out := crudx(t, dir, "create", "--name", "Alice", "--age", "30")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "id=1 name=Alice age=30")

	code, _ = crudx(t, dir, "create", "-n", "Bob", "-a", "28")
	require.Equal(t, exitOK, code)

	code, out = crudx(t, dir, "list")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Bob")

	code, out = crudx(t, dir, "update", "1", "--age", "35")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "id=1 name=Alice age=35")

	code, _ = crudx(t, dir, "delete", "2")
	require.Equal(t, exitOK, code)

	code, out = crudx(t, dir, "get", "1")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "id=1 name=Alice age=35\n", out)

	code, out = crudx(t, dir, "list")
	require.Equal(t, exitOK, code)
	assert.NotContains(t, out, "Bob")
}

func TestCLI_ExitCodes(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"empty name", []string{"create", "--name", "", "--age", "3"}, exitUsage},
		{"missing flags", []string{"create"}, exitUsage},
		{"bad id", []string{"get", "abc"}, exitUsage},
		{"extra args", []string{"list", "x"}, exitUsage},
		{"unknown flag", []string{"list", "--nope"}, exitUsage},
		{"verbose and quiet", []string{"-v", "list"}, exitUsage},
		{"bad option", []string{"-O", "novalue", "list"}, exitUsage},
		{"get absent", []string{"get", "99"}, exitNotFound},
		{"update absent", []string{"update", "99", "--age", "1"}, exitNotFound},
		{"delete absent", []string{"delete", "99"}, exitNotFound},
		{"unknown backend", []string{"-b", "oracle", "list"}, exitConnect},
		{"bad export format", []string{"export", "-o", filepath.Join(dir, "x"), "-f", "pdf"}, exitUsage},
		{"bad import format", []string{"import", "-i", filepath.Join(dir, "users.txt")}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := crudx(t, dir, tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestCLI_ExportImport(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()

	for _, u := range [][]string{{"Alice", "30"}, {"Bob", "28"}} {
		code, _ := crudx(t, src, "create", "--name", u[0], "--age", u[1])
		require.Equal(t, exitOK, code)
	}

	exported := filepath.Join(src, "users.csv")
	code, _ := crudx(t, src, "export", "-o", exported)
	require.Equal(t, exitOK, code)

	content, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "id,name,age\n"))

	code, _ = crudx(t, dst, "import", "-i", exported)
	require.Equal(t, exitOK, code)

	code, out := crudx(t, dst, "list")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Bob")
}

func TestCLI_ExportFailOnEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")

	code, _ := crudx(t, dir, "export", "-o", path, "-f", "json")
	assert.Equal(t, exitOK, code)
	assert.FileExists(t, path)

	code, _ = crudx(t, dir, "export", "-o", path, "-f", "json", "--fail-on-empty")
	assert.Equal(t, exitFailure, code)
}

func TestCLI_Version(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"version"}, &out, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out.String(), "crudx "))
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err    error
		code   int
		prefix string
	}{
		{&crud.ConnectError{Kind: crud.Unreachable, Backend: "sqlite"}, exitConnect, "Store unreachable"},
		{&crud.ConnectError{Kind: crud.AuthFailed, Backend: "postgres"}, exitConnect, "Authentication failed"},
		{&crud.ConnectError{Kind: crud.ProtocolMismatch, Backend: "http"}, exitConnect, "Cannot talk to store"},
		{&crud.OpError{Kind: crud.KindValidation, Op: "create"}, exitUsage, "Invalid input"},
		{&crud.OpError{Kind: crud.KindNotFound, Op: "get"}, exitNotFound, "Not found"},
		{&crud.OpError{Kind: crud.KindBackend, Op: "readAll"}, exitStoreFailure, "Store operation failed"},
		{&crud.OpError{Kind: crud.KindSerialization, Op: "readAll"}, exitStoreFailure, "Malformed data"},
		{fmt.Errorf("export failed: %w", &crud.OpError{Kind: crud.KindNotFound}), exitNotFound, "Not found"},
		{usagef("bad"), exitUsage, "Invalid usage"},
		{errors.New("boom"), exitFailure, "Error"},
	}
	for _, tt := range tests {
		code, msg := describeError(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.True(t, strings.HasPrefix(msg, tt.prefix), msg)
	}
}
