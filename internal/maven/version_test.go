package maven

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersionsOrdering(t *testing.T) {
	ordered := []string{
		"1.0-alpha-1",
		"1.0-beta-2",
		"1.0-M1",
		"1.0-RC1",
		"1.0-SNAPSHOT",
		"1.0",
		"1.0-sp1",
		"1.0.1",
		"1.2",
		"1.10",
		"2",
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Equal(t, -1, CompareVersions(ordered[i], ordered[i+1]), "%s < %s", ordered[i], ordered[i+1])
		assert.Equal(t, 1, CompareVersions(ordered[i+1], ordered[i]), "%s > %s", ordered[i+1], ordered[i])
	}
}

func TestCompareVersionsEquivalence(t *testing.T) {
	assert.Zero(t, CompareVersions("1.0", "1"))
	assert.Zero(t, CompareVersions("1.0.0", "1-ga"))
	assert.Zero(t, CompareVersions("1.0-final", "1.0"))
	assert.Zero(t, CompareVersions("1.0-cr1", "1.0-rc1"))
}

func TestSortVersionsDedupes(t *testing.T) {
	got := SortVersions([]string{"1.10", "1.2", "1.2", "", "1.0-SNAPSHOT", "1.0"})
	assert.Equal(t, []string{"1.0-SNAPSHOT", "1.0", "1.2", "1.10"}, got)
}

func TestLatestAndRelease(t *testing.T) {
	latest, release := LatestAndRelease([]string{"1.0", "2.0-SNAPSHOT", "1.1"})
	assert.Equal(t, "2.0-SNAPSHOT", latest)
	assert.Equal(t, "1.1", release)

	latest, release = LatestAndRelease([]string{"1.0-SNAPSHOT"})
	assert.Equal(t, "1.0-SNAPSHOT", latest)
	assert.Empty(t, release)
}
