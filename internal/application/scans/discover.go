package scans

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// DefaultMaxFiles is the discovery budget when none is configured.
const DefaultMaxFiles = 50

var supportedExt = map[string]struct{}{
	"js": {}, "ts": {}, "tsx": {}, "jsx": {}, "py": {}, "go": {}, "java": {},
	"php": {}, "rb": {}, "sql": {}, "c": {}, "cpp": {}, "cs": {}, "swift": {},
	"kt": {}, "scala": {}, "rs": {},
}

var skippedDirs = map[string]struct{}{
	"node_modules": {}, ".git": {}, "dist": {}, "build": {}, "target": {},
	"bin": {}, "obj": {}, ".next": {}, "coverage": {}, "__pycache__": {},
}

// SupportedFile reports whether a file name has an analyzable extension.
func SupportedFile(name string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return false
	}
	_, ok := supportedExt[strings.ToLower(ext)]
	return ok
}

// SkippedDir reports whether a directory is never descended into.
func SkippedDir(name string) bool {
	_, ok := skippedDirs[name]
	return ok
}

// Discoverer collects analyzable files from a hosted repository.
type Discoverer struct {
	logger  *zap.Logger
	exclude *ignore.GitIgnore
}

// NewDiscoverer compiles optional gitignore-style exclude patterns.
func NewDiscoverer(exclude []string, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Discoverer{logger: logger}
	if len(exclude) > 0 {
		d.exclude = ignore.CompileIgnoreLines(exclude...)
	}
	return d
}

// frame is one directory listing being walked.
type frame struct {
	entries []domain.Entry
	next    int
}

// Discover walks the tree pre-order, depth first, and stops once maxFiles
// files have been collected. Entries of each directory are visited in name
// order. A failed sub-directory listing is skipped; a failed root listing
// is returned.
func (d *Discoverer) Discover(ctx context.Context, host domain.RepoHost, ref domain.RepoRef, maxFiles int) ([]domain.Entry, error) {
	if maxFiles <= 0 {
		return []domain.Entry{}, nil
	}

	root, err := host.ListDir(ctx, ref, "")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ref, err)
	}

	found := make([]domain.Entry, 0, maxFiles)
	stack := []*frame{{entries: sortEntries(root)}}

	for len(stack) > 0 {
		remaining := maxFiles - len(found)
		if remaining == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		e := top.entries[top.next]
		top.next++

		if d.excluded(e) {
			continue
		}

		switch e.Type {
		case domain.EntryFile:
			if SupportedFile(e.Name) {
				found = append(found, e)
			}
		case domain.EntryDir:
			if SkippedDir(e.Name) {
				continue
			}
			children, err := host.ListDir(ctx, ref, e.Path)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				d.logger.Warn("skip directory",
					zap.String("repo", ref.String()),
					zap.String("path", e.Path),
					zap.Error(err))
				continue
			}
			stack = append(stack, &frame{entries: sortEntries(children)})
		}
	}

	return found, nil
}

func (d *Discoverer) excluded(e domain.Entry) bool {
	if d.exclude == nil {
		return false
	}
	p := strings.TrimPrefix(e.Path, "/")
	if p == "" {
		p = e.Name
	}
	if e.Type == domain.EntryDir && d.exclude.MatchesPath(p+"/") {
		return true
	}
	return d.exclude.MatchesPath(p)
}

func sortEntries(in []domain.Entry) []domain.Entry {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b domain.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
