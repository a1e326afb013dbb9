package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/phiguard/internal/application/scans"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

func scanCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a repository or local files",
	}
	cmd.AddCommand(scanRepoCmd(g))
	cmd.AddCommand(scanFilesCmd(g))
	return cmd
}

func scanRepoCmd(g *globalFlags) *cobra.Command {
	var (
		incremental bool
		maxFiles    int
		token       string
	)
	cmd := &cobra.Command{
		Use:   "repo <github-url>",
		Short: "Scan a GitHub repository",
		Example: `  phiguard scan repo https://github.com/acme/billing
  phiguard scan repo acme/billing --incremental --max-files 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("incremental") {
				incremental = a.Config.Scan.Incremental
			}
			if token == "" {
				token = os.Getenv("GITHUB_TOKEN")
			}

			return execute(cmd, func(ctx context.Context, run *appscans.Run) (*domain.ScanResult, error) {
				return a.Scans.ScanRepository(ctx, run, appscans.ScanRepositoryCommand{
					URL:         args[0],
					Incremental: incremental,
					Token:       token,
					MaxFiles:    maxFiles,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&incremental, "incremental", false, "reuse the last result when the head commit is unchanged")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "maximum files to analyze (0 = config default)")
	cmd.Flags().StringVar(&token, "token", "", "GitHub token for private repositories (default $GITHUB_TOKEN)")
	return cmd
}

func scanFilesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "files <path>...",
		Short: "Scan local files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readLocalFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no analyzable files found")
			}

			a, err := setup(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			return execute(cmd, func(ctx context.Context, run *appscans.Run) (*domain.ScanResult, error) {
				return a.Scans.ScanUploads(ctx, run, files)
			})
		},
	}
}

// execute drives one run with a progress display and Ctrl-C handling.
func execute(cmd *cobra.Command, scan func(ctx context.Context, run *appscans.Run) (*domain.ScanResult, error)) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	progress := newProgressSink(errOut)
	run := appscans.NewRun(progress.Update)

	ctx, abort := context.WithCancel(cmd.Context())
	defer abort()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go watchInterrupts(ctx, sigs, run, abort, errOut)

	result, err := scan(ctx, run)
	progress.Finish()
	if err != nil {
		if errors.Is(err, domain.ErrScanCancelled) || errors.Is(err, context.Canceled) {
			return &exitError{Code: 130, Message: "Scan cancelled."}
		}
		return err
	}

	renderResult(out, result)
	return nil
}

// watchInterrupts turns the first interrupt into a cooperative cancel and
// the second into a hard abort.
func watchInterrupts(ctx context.Context, sigs <-chan os.Signal, run *appscans.Run, abort context.CancelFunc, w io.Writer) {
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			count++
			if count == 1 {
				run.Cancel()
				fmt.Fprintln(w, styleWarn.Render("\nCancelling after the current file... press Ctrl-C again to abort."))
				continue
			}
			abort()
			return
		}
	}
}

// readLocalFiles reads plain files as given and walks directories for
// analyzable sources, skipping vendored and build folders.
func readLocalFiles(paths []string) ([]domain.UploadedFile, error) {
	var out []domain.UploadedFile
	add := func(p string) error {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, domain.UploadedFile{Name: filepath.ToSlash(p), Content: string(b)})
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && appscans.SkippedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !appscans.SupportedFile(d.Name()) {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return out, nil
}
