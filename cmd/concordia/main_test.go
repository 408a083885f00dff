package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
)

func fileBackendEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_DIR", dir)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("FEATURE_NOTIFY_REDIS", "false")
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_NoArgs(t *testing.T) {
	_, err := runCLI(t, "")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "", "teleport")
	assert.ErrorIs(t, err, errUsage)
}

func TestHashKey(t *testing.T) {
	out, err := runCLI(t, "s3cret\n", "hash-key")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashKey_Empty(t *testing.T) {
	_, err := runCLI(t, "\n", "hash-key")
	assert.ErrorIs(t, err, errUsage)
}

func TestSeedThenDump(t *testing.T) {
	fileBackendEnv(t)

	out, err := runCLI(t, "", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 classes")

	out, err = runCLI(t, "", "dump")
	require.NoError(t, err)

	var st classroom.AppState
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Len(t, st.Classes, 2)
	assert.Equal(t, "Geschichte 7b", st.Classes[0].Name)
}

func TestExportAndImport(t *testing.T) {
	fileBackendEnv(t)
	_, err := runCLI(t, "", "seed")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "c1.xlsx")
	printed, err := runCLI(t, "", "export", "-class", "c1", "-out", out)
	require.NoError(t, err)
	assert.Equal(t, out, strings.TrimSpace(printed))

	wb, err := excelize.OpenFile(out)
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	roster := excelize.NewFile()
	sheet := roster.GetSheetName(0)
	require.NoError(t, roster.SetCellValue(sheet, "A1", "Name"))
	require.NoError(t, roster.SetCellValue(sheet, "A2", "Jonas Fischer"))
	rosterPath := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, roster.SaveAs(rosterPath))

	printed, err = runCLI(t, "", "import", "-class", "c2", "-file", rosterPath)
	require.NoError(t, err)
	assert.Contains(t, printed, "Jonas Fischer")
	assert.Contains(t, printed, "imported 1")
}

func TestExport_UnknownClass(t *testing.T) {
	fileBackendEnv(t)

	_, err := runCLI(t, "", "export", "-class", "nope", "-out", filepath.Join(t.TempDir(), "x.xlsx"))
	assert.Error(t, err)
}

func TestReport_WithoutKeyReportsNotConfigured(t *testing.T) {
	fileBackendEnv(t)
	_, err := runCLI(t, "", "seed")
	require.NoError(t, err)

	out, err := runCLI(t, "", "report", "-student", "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_configured")
	assert.NotEmpty(t, strings.TrimSpace(out))
}
