// internal/reporting/revision.go

package reporting

import (
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// Revision returns the short HEAD hash of the git repository containing
// path, walking upward until a .git directory is found. Runs are stamped
// with it so a screenshot can be traced back to the page version it shows.
// Lookup is best effort; outside a repository it returns the empty string.
func Revision(path string) string {
	dir := path
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		dir = filepath.Dir(dir)
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()[:8]
}
