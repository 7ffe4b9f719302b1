package maven

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathToGavRelease(t *testing.T) {
	gav, ok := PathToGav("/org/example/demo/1.0/demo-1.0-sources.jar")
	require.True(t, ok)
	assert.Equal(t, "org.example", gav.GroupID)
	assert.Equal(t, "demo", gav.ArtifactID)
	assert.Equal(t, "1.0", gav.Version)
	assert.Equal(t, "1.0", gav.BaseVersion)
	assert.Equal(t, "sources", gav.Classifier)
	assert.Equal(t, "jar", gav.Extension)
	assert.False(t, gav.Snapshot)
}

func TestPathToGavTimestampedSnapshot(t *testing.T) {
	gav, ok := PathToGav("/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.jar")
	require.True(t, ok)
	assert.True(t, gav.Snapshot)
	assert.Equal(t, "1.0-20240101.120000-1", gav.Version)
	assert.Equal(t, "1.0-SNAPSHOT", gav.BaseVersion)
	assert.Equal(t, "20240101.120000", gav.SnapshotTimestamp)
	assert.Equal(t, 1, gav.SnapshotBuildNumber)
	assert.Equal(t, "jar", gav.Extension)
	assert.Empty(t, gav.Classifier)
}

func TestPathToGavHashAndSignature(t *testing.T) {
	gav, ok := PathToGav("/g/a/1.0/a-1.0.pom.asc.sha1")
	require.True(t, ok)
	assert.True(t, gav.Hash)
	assert.Equal(t, "sha1", gav.HashType)
	assert.True(t, gav.Signature)
	assert.Equal(t, "asc", gav.SignatureType)
	assert.Equal(t, "pom", gav.Extension)
}

func TestPathToGavRejects(t *testing.T) {
	for _, path := range []string{
		"/g/a/maven-metadata.xml",
		"/g/a/1.0/maven-metadata.xml.sha1",
		"/a/1.0/a-1.0.jar",
		"/g/a/1.0/other-1.0.jar",
		"/g/a/1.0/a-2.0.jar",
		"/g/a/1.0-SNAPSHOT/a-1.0-garbage.jar",
		"/g/a/1.0/a-1.0",
	} {
		_, ok := PathToGav(path)
		assert.False(t, ok, path)
	}
}

func TestComposePathRoundTrip(t *testing.T) {
	for _, path := range []string{
		"/org/example/demo/1.0/demo-1.0.jar",
		"/org/example/demo/1.0/demo-1.0-sources.jar",
		"/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.pom",
		"/g/a/1.0-SNAPSHOT/a-1.0-SNAPSHOT-tests.tar.gz",
		"/g/a/1.0/a-1.0.jar.asc.md5",
	} {
		gav, ok := PathToGav(path)
		require.True(t, ok, path)
		assert.Equal(t, path, ComposePath(gav))
	}
}

func TestParseSnapshotVersion(t *testing.T) {
	ts, bn, ok := ParseSnapshotVersion("2.1-20231231.235959-42")
	require.True(t, ok)
	assert.Equal(t, "20231231.235959", ts)
	assert.Equal(t, 42, bn)

	_, _, ok = ParseSnapshotVersion("2.1-SNAPSHOT")
	assert.False(t, ok)
	assert.True(t, IsSnapshot("2.1-SNAPSHOT"))
	assert.True(t, IsSnapshot("2.1-20231231.235959-42"))
	assert.False(t, IsSnapshot("2.1"))
}
