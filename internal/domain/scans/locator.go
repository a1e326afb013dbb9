package scans

import "strings"

// RepoRef identifies a hosted repository.
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (r RepoRef) String() string { return r.Owner + "/" + r.Name }

// ParseRepoURL extracts owner and name from a repository URL such as
// https://github.com/acme/billing. One trailing slash is tolerated. The last
// two non-empty path segments are taken as owner and name; ok is false when
// fewer than two remain.
func ParseRepoURL(raw string) (RepoRef, bool) {
	clean := strings.TrimSuffix(strings.TrimSpace(raw), "/")

	var segs []string
	for _, s := range strings.Split(clean, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) < 2 {
		return RepoRef{}, false
	}
	return RepoRef{Owner: segs[len(segs)-2], Name: segs[len(segs)-1]}, true
}
