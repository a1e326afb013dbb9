package scans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/phiguard/internal/application"
	"github.com/bryanwahyu/phiguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// Service implements use-cases untuk HIPAA scan.
// Runs are independent; one Service may drive many runs concurrently.
type Service struct {
	Repo      domain.Repository
	Hosts     domain.HostProvider
	Analyzer  domain.Analyzer
	Artifacts domain.ArtifactStore  // optional
	Errors    scanerrors.Repository // optional
	Clock     application.Clock
	Logger    *zap.Logger
	MaxFiles  int
	Exclude   []string
}

//
// ==== USE CASES ====
//

// ScanRepositoryCommand untuk scan repo GitHub
type ScanRepositoryCommand struct {
	URL         string
	Incremental bool
	Token       string
	MaxFiles    int // 0 = service default
}

// ScanRepository runs the full GitHub pipeline on run. With Incremental set
// and an unchanged head revision the previous result is returned as is and
// nothing is analyzed or stored.
func (s *Service) ScanRepository(ctx context.Context, run *Run, cmd ScanRepositoryCommand) (*domain.ScanResult, error) {
	if err := run.start(); err != nil {
		return nil, err
	}
	log := s.log().With(zap.String("run_id", string(run.ID())), zap.String("source", cmd.URL))

	ref, ok := domain.ParseRepoURL(cmd.URL)
	if !ok {
		return nil, s.fail(ctx, run, log, cmd.URL, scanerrors.PhaseInput, "", domain.ErrInvalidRepoURL)
	}
	if run.Cancelled() {
		return nil, s.fail(ctx, run, log, cmd.URL, scanerrors.PhaseRevision, "", domain.ErrScanCancelled)
	}

	host := s.Hosts.ForCredential(cmd.Token)
	detector := ChangeDetector{Repo: s.Repo}

	head, err := detector.LatestRevision(ctx, host, ref)
	if err != nil {
		return nil, s.fail(ctx, run, log, cmd.URL, scanerrors.PhaseRevision, "", err)
	}
	log = log.With(zap.String("commit", head))

	if cmd.Incremental {
		prev, err := detector.ShouldSkip(ctx, cmd.URL, head)
		switch {
		case err != nil:
			log.Warn("incremental lookup failed, running full scan", zap.Error(err))
		case prev != nil:
			log.Info("head unchanged since last scan, reusing result", zap.String("previous_id", string(prev.ID)))
			out := prev.Clone()
			out.LastCommitHash = head
			run.setState(domain.RunCompleted)
			return out, nil
		}
	}

	maxFiles := cmd.MaxFiles
	if maxFiles <= 0 {
		maxFiles = s.maxFiles()
	}
	files, err := NewDiscoverer(s.Exclude, log).Discover(ctx, host, ref, maxFiles)
	if err != nil {
		return nil, s.fail(ctx, run, log, cmd.URL, scanerrors.PhaseDiscovery, "", err)
	}
	log.Info("files discovered", zap.Int("count", len(files)), zap.Int("max_files", maxFiles))
	if run.Cancelled() {
		return nil, s.fail(ctx, run, log, cmd.URL, scanerrors.PhaseDiscovery, "", domain.ErrScanCancelled)
	}

	items := make([]workItem, len(files))
	for i, f := range files {
		entry := f
		items[i] = workItem{
			name: entry.Path,
			load: func(ctx context.Context) (string, error) { return host.FetchFile(ctx, entry) },
		}
	}

	findings, failedFile, err := s.analyzeAll(ctx, run, items)
	if err != nil {
		return nil, s.fail(ctx, run, log, cmd.URL, scanerrors.PhaseAnalysis, failedFile, err)
	}

	result := s.newResult(run, domain.SourceGitHub, cmd.URL, findings, len(files))
	result.LastCommitHash = head
	return s.complete(ctx, run, log, result)
}

// ScanUploads analyzes local files in the order given.
func (s *Service) ScanUploads(ctx context.Context, run *Run, files []domain.UploadedFile) (*domain.ScanResult, error) {
	if err := run.start(); err != nil {
		return nil, err
	}
	sourceName := fmt.Sprintf("%d file(s)", len(files))
	log := s.log().With(zap.String("run_id", string(run.ID())), zap.String("source", sourceName))

	items := make([]workItem, len(files))
	for i, f := range files {
		content := f.Content
		items[i] = workItem{
			name: f.Name,
			load: func(context.Context) (string, error) { return content, nil },
		}
	}

	findings, failedFile, err := s.analyzeAll(ctx, run, items)
	if err != nil {
		return nil, s.fail(ctx, run, log, sourceName, scanerrors.PhaseAnalysis, failedFile, err)
	}

	result := s.newResult(run, domain.SourceUpload, sourceName, findings, len(files))
	return s.complete(ctx, run, log, result)
}

func (s *Service) List(ctx context.Context) ([]*domain.ScanResult, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) Clear(ctx context.Context) error {
	return s.Repo.Clear(ctx)
}

// ErrorsForRun returns the failure log of a run, empty when no error log is
// configured.
func (s *Service) ErrorsForRun(ctx context.Context, runID string, limit int) ([]*scanerrors.ScanError, error) {
	if s.Errors == nil {
		return []*scanerrors.ScanError{}, nil
	}
	return s.Errors.ListByRun(ctx, runID, limit)
}

//
// ==== INTERNAL ====
//

type workItem struct {
	name string
	load func(ctx context.Context) (string, error)
}

// analyzeAll processes items strictly one after another. The run's flag is
// checked before any network call for an item.
func (s *Service) analyzeAll(ctx context.Context, run *Run, items []workItem) ([]domain.Finding, string, error) {
	run.setState(domain.RunAnalyzing)
	findings := make([]domain.Finding, 0)
	total := len(items)

	for i, it := range items {
		if run.Cancelled() {
			return nil, it.name, domain.ErrScanCancelled
		}
		if err := ctx.Err(); err != nil {
			return nil, it.name, err
		}
		run.report(it.name, i+1, total)

		code, err := it.load(ctx)
		if err != nil {
			return nil, it.name, fmt.Errorf("fetch %s: %w", it.name, err)
		}
		got, err := s.Analyzer.Analyze(ctx, code, it.name)
		if err != nil {
			return nil, it.name, fmt.Errorf("analyze %s: %w", it.name, err)
		}
		findings = append(findings, got...)
	}
	return findings, "", nil
}

func (s *Service) newResult(run *Run, kind domain.SourceKind, sourceName string, findings []domain.Finding, scanned int) *domain.ScanResult {
	run.setState(domain.RunAggregating)
	return &domain.ScanResult{
		ID:           run.ID(),
		Timestamp:    s.now(),
		Source:       kind,
		SourceName:   sourceName,
		Status:       domain.StatusCompleted,
		Findings:     findings,
		Summary:      domain.Summarize(findings),
		FilesScanned: scanned,
	}
}

// complete archives and persists a finished result. Archive problems are
// only logged.
func (s *Service) complete(ctx context.Context, run *Run, log *zap.Logger, result *domain.ScanResult) (*domain.ScanResult, error) {
	if url, err := s.archive(ctx, result); err != nil {
		log.Warn("report archive failed", zap.Error(err))
	} else {
		result.ArtifactURL = url
	}

	if err := s.Repo.Save(ctx, result); err != nil {
		return nil, s.fail(ctx, run, log, result.SourceName, scanerrors.PhasePersist, "", fmt.Errorf("save scan: %w", err))
	}
	run.setState(domain.RunCompleted)
	log.Info("scan completed",
		zap.Int("files", result.FilesScanned),
		zap.Int("findings", result.Summary.Total),
		zap.Int("critical", result.Summary.Critical),
		zap.Int("high", result.Summary.High))
	return result, nil
}

func (s *Service) archive(ctx context.Context, result *domain.ScanResult) (string, error) {
	if s.Artifacts == nil {
		return "", nil
	}
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("reports/%s/%s.json", result.Source, result.ID)
	return s.Artifacts.PutJSON(ctx, key, body)
}

// fail moves run to its terminal state and records real failures in the
// error log. Cancellation (flag or context) is not a failure.
func (s *Service) fail(ctx context.Context, run *Run, log *zap.Logger, sourceName string, phase scanerrors.Phase, fileName string, err error) error {
	if errors.Is(err, domain.ErrScanCancelled) || errors.Is(err, context.Canceled) {
		run.setState(domain.RunCancelled)
		log.Info("scan cancelled", zap.String("file", fileName))
		return err
	}

	run.setState(domain.RunFailed)
	log.Error("scan failed", zap.String("phase", string(phase)), zap.String("file", fileName), zap.Error(err))

	if s.Errors != nil {
		rec := &scanerrors.ScanError{
			RunID:      string(run.ID()),
			SourceName: sourceName,
			Phase:      phase,
			FileName:   fileName,
			Message:    err.Error(),
			CreatedAt:  s.now(),
		}
		if serr := s.Errors.Save(context.WithoutCancel(ctx), rec); serr != nil {
			log.Warn("failed to record scan error", zap.Error(serr))
		}
	}
	return err
}

func (s *Service) maxFiles() int {
	if s.MaxFiles > 0 {
		return s.MaxFiles
	}
	return DefaultMaxFiles
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
