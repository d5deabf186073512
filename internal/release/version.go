package release

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned for inputs that do not match the version grammar.
// Callers surface it together with the expected grammar, see Parse.
var ErrInvalidFormat = errors.New("invalid version format")

// versionGrammar is the human-readable grammar named in validation errors.
const versionGrammar = "MAJOR.MINOR.PATCH[-PRERELEASE]"

var (
	// versionPattern is the strict allow-list grammar for user-supplied versions.
	// Validation happens once at the input boundary, before any I/O.
	versionPattern = regexp.MustCompile(`^([0-9]+)\.([0-9]+)\.([0-9]+)(?:-([0-9A-Za-z]+))?$`)

	// versionTokenPattern finds version-like tokens inside free-form text,
	// such as executable output or a scraped release listing page.
	versionTokenPattern = regexp.MustCompile(`[0-9]+\.[0-9]+\.[0-9]+(?:-[0-9A-Za-z]+)?`)

	// metacharacterStripper removes the shell metacharacter class from raw
	// input. A syntactically valid version contains none of these, so
	// sanitization never alters one.
	metacharacterStripper = strings.NewReplacer(
		";", "", "&", "", "|", "", "`", "", "$", "",
		"(", "", ")", "", "{", "", "}", "", "[", "", "]", "", `\`, "",
	)
)

// Version is a semantic identifier MAJOR.MINOR.PATCH[-PRERELEASE].
type Version struct {
	// Major, Minor and Patch are the non-negative numeric segments.
	Major, Minor, Patch int
	// Prerelease is the optional alphanumeric tag; empty means a full release.
	Prerelease string
}

// Parse validates input against the version grammar and returns the parsed
// Version. Any deviation fails with ErrInvalidFormat naming the expected
// grammar. Parse performs no network or filesystem I/O.
func Parse(input string) (Version, error) {
	match := versionPattern.FindStringSubmatch(input)
	if match == nil {
		return Version{}, fmt.Errorf("%q does not match %s: %w", input, versionGrammar, ErrInvalidFormat)
	}

	// The pattern guarantees the numeric segments parse.
	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])
	patch, _ := strconv.Atoi(match[3])

	return Version{Major: major, Minor: minor, Patch: patch, Prerelease: match[4]}, nil
}

// Sanitize strips shell metacharacters from raw user input before validation.
// Requests are built via parameterized calls, never shell strings; stripping
// here is defense in depth for anything logged or embedded downstream.
func Sanitize(input string) string {
	return metacharacterStripper.Replace(strings.TrimSpace(input))
}

// String renders the version in its canonical form.
func (v Version) String() string {
	if v.Prerelease == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}

	return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.Prerelease)
}

// Compare orders versions by numeric MAJOR, MINOR, PATCH, then by prerelease:
// at equal numbers a release without a prerelease tag is newer than one with,
// and two prerelease tags compare lexicographically.
// It returns -1 when v is older than other, 0 when equal, and 1 when newer.
func (v Version) Compare(other Version) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}

	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}

	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}

	switch {
	case v.Prerelease == other.Prerelease:
		return 0
	case v.Prerelease == "":
		return 1
	case other.Prerelease == "":
		return -1
	default:
		return strings.Compare(v.Prerelease, other.Prerelease)
	}
}

// Equal reports whether two versions are identical.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// SortDesc orders versions in place, newest first.
func SortDesc(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) > 0
	})
}

// parseTokens extracts, deduplicates and parses version-like tokens from
// free-form text. Unparseable tokens are skipped.
func parseTokens(text string) []Version {
	seen := make(map[Version]struct{})

	var versions []Version

	for _, token := range versionTokenPattern.FindAllString(text, -1) {
		parsed, err := Parse(token)
		if err != nil {
			continue
		}

		if _, found := seen[parsed]; found {
			continue
		}

		seen[parsed] = struct{}{}
		versions = append(versions, parsed)
	}

	return versions
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
