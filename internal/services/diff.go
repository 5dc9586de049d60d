package services

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// VersionDiff returns a unified diff (three lines of context) between two
// content snapshots. It is empty when the contents are identical.
func VersionDiff(previous, current string, fromVersion, toVersion int) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: fmt.Sprintf("version %d", fromVersion),
		ToFile:   fmt.Sprintf("version %d", toVersion),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}
	return text, nil
}
