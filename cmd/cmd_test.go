package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args against a fresh output buffer.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "plugg.db")
}

func TestAttemptAndLevel(t *testing.T) {
	db := testDB(t)

	out, err := run(t, "attempt", "algebra-linear-equations", "correct", "--time", "3000", "--subject", "", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "algebra-linear-equations: 60%")
	assert.Contains(t, out, "level changed: beginner -> learning")
	assert.NotContains(t, out, "next review")

	out, err = run(t, "level", "algebra-linear-equations", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "level:       learning")
	assert.Contains(t, out, "attempts:    1 (1 correct)")

	// Another account sees the prior.
	out, err = run(t, "level", "algebra-linear-equations", "--db", db, "--account", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "mastery:     50%")
}

func TestAttemptSchedulesVocabulary(t *testing.T) {
	db := testDB(t)

	out, err := run(t, "attempt", "vocab-everyday", "wrong", "--time", "0", "--subject", "", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "next review")

	out, err = run(t, "review", "vocab-everyday", "correct", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "repetition 1")
	assert.Contains(t, out, "2.0h")
}

func TestAttemptRejectsBadOutcome(t *testing.T) {
	_, err := run(t, "attempt", "vocab-everyday", "maybe", "--time", "0", "--subject", "", "--db", testDB(t), "--account", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "correct or wrong")
}

func TestDueEmpty(t *testing.T) {
	out, err := run(t, "due", "--db", testDB(t), "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing due.")
}

func TestPolicy(t *testing.T) {
	db := testDB(t)

	out, err := run(t, "policy", "genetics-inheritance", "--subject", "", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "genetics-inheritance (biology): spaced-repetition")

	out, err = run(t, "policy", "cell-structure", "--subject", "biology", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "cell-structure (biology): mastery")

	out, err = run(t, "policy", "--subject", "", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "english")
	assert.Contains(t, out, "genetics")
}

func TestStats(t *testing.T) {
	db := testDB(t)

	out, err := run(t, "stats", "--limit", "5", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "attempts:  0 (0 correct)")
	assert.Contains(t, out, "streak:    0 day(s)")

	for _, outcome := range []string{"correct", "wrong"} {
		_, err := run(t, "attempt", "algebra-linear-equations", outcome, "--time", "1000", "--subject", "", "--db", db, "--account", "alice")
		require.NoError(t, err)
	}

	out, err = run(t, "stats", "--limit", "5", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "attempts:  2 (1 correct)")
	assert.Contains(t, out, "accuracy:  50%")
	assert.Contains(t, out, "streak:    1 day(s)")
	assert.Contains(t, out, "Weakest skills")
	assert.Contains(t, out, "algebra-linear-equations")
}

func TestSkillList(t *testing.T) {
	db := testDB(t)

	out, err := run(t, "skill", "list", "--subject", "english", "--available=false", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "vocab-everyday")
	assert.NotContains(t, out, "algebra-linear-equations")

	_, err = run(t, "skill", "list", "--subject", "latin", "--available=false", "--db", db)
	require.Error(t, err)
}

func TestEraseRequiresConfirmation(t *testing.T) {
	db := testDB(t)

	_, err := run(t, "attempt", "vocab-everyday", "correct", "--time", "0", "--subject", "", "--db", db, "--account", "alice")
	require.NoError(t, err)

	_, err = run(t, "erase", "--yes=false", "--db", db, "--account", "alice")
	require.Error(t, err)

	out, err := run(t, "erase", "--yes", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Erased all data for alice.")

	out, err = run(t, "level", "vocab-everyday", "--db", db, "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "attempts:    0 (0 correct)")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "plugg "))
}
