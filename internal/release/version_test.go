package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseRejectsBadInput ensures inputs off the grammar fail with ErrInvalidFormat.
func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"1",
		"1.2",
		"1.2.3.4",
		"v1.2.3",
		"1.2.x",
		"1.-2.3",
		"1.2.3-",
		"1.2.3-beta.1",
		"1.2.3-beta_1",
		"1.2.3 ",
		"one.two.three",
		"1.2.3;rm -rf /",
	}

	for _, input := range inputs {
		_, err := Parse(input)
		require.ErrorIs(t, err, ErrInvalidFormat, "input %q", input)
		require.Contains(t, err.Error(), "MAJOR.MINOR.PATCH[-PRERELEASE]", "input %q", input)
	}
}

// TestParseAcceptsValidInput checks parsed segments for well-formed versions.
func TestParseAcceptsValidInput(t *testing.T) {
	t.Parallel()

	v, err := Parse("1.9.4")
	require.NoError(t, err)
	require.Equal(t, Version{Major: 1, Minor: 9, Patch: 4}, v)
	require.Equal(t, "1.9.4", v.String())

	v, err = Parse("0.10.2-beta1")
	require.NoError(t, err)
	require.Equal(t, Version{Major: 0, Minor: 10, Patch: 2, Prerelease: "beta1"}, v)
	require.Equal(t, "0.10.2-beta1", v.String())
}

// TestSanitize verifies metacharacter stripping leaves valid versions untouched.
func TestSanitize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"1.2.3", "1.2.3"},
		{"1.2.3-rc1", "1.2.3-rc1"},
		{" 1.2.3 ", "1.2.3"},
		{"1.2.3;reboot", "1.2.3reboot"},
		{"$(curl evil)1.2.3", "curl evil1.2.3"},
		{"1.2.3`id`", "1.2.3id"},
		{`1.2.3\&|{}[]`, "1.2.3"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.expected, Sanitize(tc.input), "input %q", tc.input)
	}
}

// TestCompareOrdering checks numeric-then-prerelease ordering and transitivity.
func TestCompareOrdering(t *testing.T) {
	t.Parallel()

	mustParse := func(s string) Version {
		v, err := Parse(s)
		require.NoError(t, err)

		return v
	}

	// Ascending chain: each element is older than every later one.
	chain := []Version{
		mustParse("0.9.9"),
		mustParse("1.0.0-alpha"),
		mustParse("1.0.0-beta"),
		mustParse("1.0.0"),
		mustParse("1.9.3"),
		mustParse("1.9.4-beta1"),
		mustParse("1.9.4"),
		mustParse("2.0.0"),
	}

	for i := range chain {
		require.Equal(t, 0, chain[i].Compare(chain[i]))

		for j := i + 1; j < len(chain); j++ {
			require.Equal(t, -1, chain[i].Compare(chain[j]), "%s < %s", chain[i], chain[j])
			require.Equal(t, 1, chain[j].Compare(chain[i]), "%s > %s", chain[j], chain[i])
		}
	}
}

// TestSortDesc verifies newest-first ordering.
func TestSortDesc(t *testing.T) {
	t.Parallel()

	versions := []Version{
		{Major: 1, Minor: 0, Patch: 0},
		{Major: 2, Minor: 1, Patch: 0},
		{Major: 2, Minor: 1, Patch: 0, Prerelease: "rc1"},
		{Major: 1, Minor: 5, Patch: 3},
	}

	SortDesc(versions)

	require.Equal(t, "2.1.0", versions[0].String())
	require.Equal(t, "2.1.0-rc1", versions[1].String())
	require.Equal(t, "1.5.3", versions[2].String())
	require.Equal(t, "1.0.0", versions[3].String())
}

// TestParseFromOutput extracts a version token from executable output.
func TestParseFromOutput(t *testing.T) {
	t.Parallel()

	v, err := ParseFromOutput("hawk version 1.2.3, commit abc123\n")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", v.String())

	_, err = ParseFromOutput("no version here")
	require.ErrorIs(t, err, ErrUnknownVersion)
}
