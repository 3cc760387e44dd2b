package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFailureLedgerAppendsAcrossRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "failed.csv")
	ledger := NewFailureLedger(path)

	require.NoError(t, ledger.Append("12345"))
	require.NoError(t, ledger.Append("67890"))
	require.NoError(t, ledger.Append("12345"))

	require.Equal(t, []string{"12345", "67890", "12345"}, readLines(t, path))
}

func TestErrorLogFormatsLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scrap.logs")
	clock := fixedClock{now: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)}
	errlog := NewErrorLog(path, clock)

	require.NoError(t, errlog.Append("12345", "no navigation after submit"))

	lines := readLines(t, path)
	require.Equal(t, []string{"2026-03-14 15:09:26 CMP 12345: no navigation after submit"}, lines)
}

func TestErrorLogDirectoryPathUsesFixedFilename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	errlog := NewErrorLog(dir, fixedClock{now: time.Unix(0, 0).UTC()})

	require.NoError(t, errlog.Append("99999", "boom"))

	lines := readLines(t, filepath.Join(dir, "scrap.logs"))
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "CMP 99999: boom")
}
