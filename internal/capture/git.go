package capture

import (
	"os/exec"
	"strings"
)

// GitInfo anchors a capture to the repository state it was taken from.
type GitInfo struct {
	RepoRoot  string
	Branch    string
	CommitSHA string
}

// GitInfoFor inspects the repository containing dir. Fields are left
// empty when dir is not inside a git work tree or git is unavailable.
func GitInfoFor(dir string) GitInfo {
	return GitInfo{
		RepoRoot:  gitOutput(dir, "rev-parse", "--show-toplevel"),
		Branch:    gitOutput(dir, "rev-parse", "--abbrev-ref", "HEAD"),
		CommitSHA: gitOutput(dir, "rev-parse", "HEAD"),
	}
}

func gitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
