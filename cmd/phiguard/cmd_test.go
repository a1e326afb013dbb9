package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appscans "github.com/bryanwahyu/phiguard/internal/application/scans"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadLocalFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "app.js"), "console.log(ssn)")
	writeFile(t, filepath.Join(dir, "src", "README.md"), "# readme")
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "index.js"), "x")
	notes := filepath.Join(dir, "notes.txt")
	writeFile(t, notes, "explicit files are always read")

	files, err := readLocalFiles([]string{filepath.Join(dir, "src"), notes, filepath.Join(dir, "node_modules")})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Name))
	}
	// node_modules given as root is walked, its own name is not checked
	assert.Equal(t, []string{"app.js", "notes.txt", "index.js"}, names)

	_, err = readLocalFiles([]string{filepath.Join(dir, "missing.js")})
	assert.Error(t, err)
}

func TestWatchInterrupts(t *testing.T) {
	ctx, abort := context.WithCancel(context.Background())
	defer abort()
	run := appscans.NewRun(nil)
	sigs := make(chan os.Signal, 2)
	var out bytes.Buffer

	done := make(chan struct{})
	go func() {
		watchInterrupts(ctx, sigs, run, abort, &out)
		close(done)
	}()

	sigs <- syscall.SIGINT
	require.Eventually(t, run.Cancelled, time.Second, 5*time.Millisecond)
	assert.NoError(t, ctx.Err())

	sigs <- syscall.SIGINT
	<-done
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Contains(t, out.String(), "Ctrl-C again")
}

func TestProgressSink_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressSink(&buf)
	p.Update(domain.Progress{FileName: "a.js", Current: 1, Total: 3, Percentage: 33})
	p.Update(domain.Progress{FileName: "b.js", Current: 2, Total: 3, Percentage: 67})
	p.Finish()

	assert.Equal(t, "[1/3]  33% a.js\n[2/3]  67% b.js\n", buf.String())
}

func TestRenderResult(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, &domain.ScanResult{
		ID:         "6f1c2a7e-3b5d-4c8e-9a0f-1b2c3d4e5f60",
		Timestamp:  time.Now(),
		Source:     domain.SourceGitHub,
		SourceName: "https://github.com/acme/billing",
		Findings: []domain.Finding{{
			Title:       "PHI written to logs",
			Severity:    domain.SeverityCritical,
			File:        "src/app.js",
			Line:        12,
			Regulation:  "45 CFR 164.312(b)",
			CodeExample: "logger.info(redact(patient))",
		}},
		Summary:        domain.SeverityCounts{Critical: 1, Total: 1},
		LastCommitHash: "abc123",
		FilesScanned:   4,
	})
	out := buf.String()
	for _, want := range []string{"PHI written to logs", "src/app.js:12", "45 CFR 164.312(b)", "abc123", "Files:    4", "redact(patient)"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	renderFindings(&buf, nil)
	assert.Contains(t, buf.String(), "No compliance issues found.")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_ScanFilesHistoryShowClear(t *testing.T) {
	t.Setenv("PHIGUARD_AI_API_KEY", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "storage:\n  local_path: "+filepath.Join(dir, "data")+"\n")
	src := filepath.Join(dir, "app.py")
	writeFile(t, src, "print(patient.ssn)")

	out, err := runCLI(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No scans yet.")

	// without an API key the oracle reports a configuration finding
	out, err = runCLI(t, "--config", cfgPath, "scan", "files", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration Error")
	assert.Contains(t, out, "[1/1] 100%")

	out, err = runCLI(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	id := strings.Fields(lines[1])[0]

	out, err = runCLI(t, "--config", cfgPath, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = runCLI(t, "--config", cfgPath, "show", "nope")
	assert.ErrorContains(t, err, "no scan with id nope")

	out, err = runCLI(t, "--config", cfgPath, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Scan history cleared.")

	out, err = runCLI(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No scans yet.")
}

func TestCLI_ScanFilesNothingToScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), "x")
	_, err := runCLI(t, "--config", filepath.Join(dir, "none.yaml"), "scan", "files", dir)
	assert.ErrorContains(t, err, "no analyzable files")
}
