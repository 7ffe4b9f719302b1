package metadata

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/any-repo/internal/attributes"
	"github.com/any-hub/any-repo/internal/checksum"
	"github.com/any-hub/any-repo/internal/maven"
	"github.com/any-hub/any-repo/internal/storage"
)

type pathResolver struct{}

func (pathResolver) PathToGav(p string) (maven.Gav, bool) { return maven.PathToGav(p) }

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	storage   *storage.LocalStorage
	checksums *checksum.Checksummer
	crawl     Crawl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir(), storage.Options{})
	require.NoError(t, err)
	attrs, err := attributes.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = attrs.Close() })

	c := checksum.NewChecksummer(s, attrs, nil)
	return &fixture{
		storage:   s,
		checksums: c,
		crawl: Crawl{
			Repository: "test",
			Storage:    s,
			Checksums:  c,
			Resolver:   pathResolver{},
			Clock:      func() time.Time { return fixedNow },
		},
	}
}

func (f *fixture) put(t *testing.T, p string, body []byte) {
	t.Helper()
	err := f.storage.StoreItem(context.Background(), &storage.FileItem{
		Path:     p,
		Content:  storage.BytesLocator(body),
		Length:   int64(len(body)),
		Modified: fixedNow.Add(-time.Hour),
	})
	require.NoError(t, err)
}

func (f *fixture) read(t *testing.T, p string) []byte {
	t.Helper()
	target, err := f.storage.Resolve(p)
	require.NoError(t, err)
	body, err := os.ReadFile(target)
	require.NoError(t, err)
	return body
}

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.storage.ContainsItem(context.Background(), p)
	require.NoError(t, err)
	return ok
}

func (f *fixture) metadata(t *testing.T, p string) *maven.Metadata {
	t.Helper()
	md, err := maven.ReadMetadata(bytes.NewReader(f.read(t, p)))
	require.NoError(t, err)
	return md
}

func pom(groupID, artifactID, version, packaging string) []byte {
	return []byte("<project><groupId>" + groupID + "</groupId><artifactId>" + artifactID +
		"</artifactId><version>" + version + "</version><packaging>" + packaging + "</packaging></project>")
}

func TestRebuildSnapshotVersionDirectory(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.jar", []byte("jar-bytes"))
	f.put(t, "/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.pom", pom("g", "a", "1.0-SNAPSHOT", "jar"))

	stats, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MetadataWritten)
	assert.NotEmpty(t, stats.CrawlID)

	md := f.metadata(t, "/g/a/1.0-SNAPSHOT/maven-metadata.xml")
	assert.Equal(t, "g", md.GroupID)
	assert.Equal(t, "a", md.ArtifactID)
	assert.Equal(t, "1.0-SNAPSHOT", md.Version)
	require.NotNil(t, md.Versioning)
	require.NotNil(t, md.Versioning.Snapshot)
	assert.Equal(t, "20240101.120000", md.Versioning.Snapshot.Timestamp)
	assert.Equal(t, 1, md.Versioning.Snapshot.BuildNumber)
	require.Len(t, md.Versioning.SnapshotVersions, 2)
	extensions := []string{md.Versioning.SnapshotVersions[0].Extension, md.Versioning.SnapshotVersions[1].Extension}
	assert.ElementsMatch(t, []string{"jar", "pom"}, extensions)
	for _, sv := range md.Versioning.SnapshotVersions {
		assert.Equal(t, "1.0-20240101.120000-1", sv.Value)
		assert.Equal(t, "20240101120000", sv.Updated)
	}

	artifact := f.metadata(t, "/g/a/maven-metadata.xml")
	require.NotNil(t, artifact.Versioning)
	assert.Equal(t, []string{"1.0-SNAPSHOT"}, artifact.Versioning.Versions)
	assert.Equal(t, "1.0-SNAPSHOT", artifact.Versioning.Latest)
	assert.Empty(t, artifact.Versioning.Release)

	for _, alg := range checksum.All() {
		assert.True(t, f.exists(t, checksum.SidecarPath("/g/a/maven-metadata.xml", alg)), alg.Name)
		assert.True(t, f.exists(t, checksum.SidecarPath("/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.jar", alg)), alg.Name)
	}
}

func TestRebuildArtifactVersionsOrdered(t *testing.T) {
	f := newFixture(t)
	for _, v := range []string{"1.10", "1.2", "1.0"} {
		f.put(t, "/org/example/lib/"+v+"/lib-"+v+".pom", pom("org.example", "lib", v, "jar"))
	}

	_, err := f.crawl.Rebuild(context.Background(), "/org")
	require.NoError(t, err)

	md := f.metadata(t, "/org/example/lib/maven-metadata.xml")
	assert.Equal(t, "org.example", md.GroupID)
	assert.Equal(t, []string{"1.0", "1.2", "1.10"}, md.Versioning.Versions)
	assert.Equal(t, "1.10", md.Versioning.Latest)
	assert.Equal(t, "1.10", md.Versioning.Release)
	assert.Equal(t, maven.FormatTimestamp(fixedNow), md.Versioning.LastUpdated)
	assert.False(t, f.exists(t, "/org/example/lib/1.0/maven-metadata.xml"))
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.jar", []byte("jar-bytes"))
	f.put(t, "/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1.pom", pom("g", "a", "1.0-SNAPSHOT", "jar"))
	f.put(t, "/g/a/1.1/a-1.1.pom", pom("g", "a", "1.1", "jar"))

	_, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)
	versionMD := f.read(t, "/g/a/1.0-SNAPSHOT/maven-metadata.xml")
	artifactMD := f.read(t, "/g/a/maven-metadata.xml")
	artifactSHA1 := f.read(t, "/g/a/maven-metadata.xml.sha1")

	f.crawl.Clock = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	stats, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)
	assert.Zero(t, stats.MetadataWritten)
	assert.Zero(t, stats.MetadataRemoved)
	assert.Zero(t, stats.ChecksumsRebuilt)
	assert.Zero(t, stats.SidecarsRemoved)

	assert.Equal(t, versionMD, f.read(t, "/g/a/1.0-SNAPSHOT/maven-metadata.xml"))
	assert.Equal(t, artifactMD, f.read(t, "/g/a/maven-metadata.xml"))
	assert.Equal(t, artifactSHA1, f.read(t, "/g/a/maven-metadata.xml.sha1"))
}

func TestRebuildRefreshesSidecarsForSameLengthContent(t *testing.T) {
	f := newFixture(t)
	jar := "/g/a/1.0/a-1.0.jar"
	f.put(t, jar, []byte("aaa"))
	_, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)

	f.put(t, jar, []byte("bbb"))
	stats, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChecksumsRebuilt)

	sum := sha1.Sum([]byte("bbb"))
	assert.Equal(t, hex.EncodeToString(sum[:]), string(f.read(t, checksum.SidecarPath(jar, checksum.SHA1))))
}

func TestRebuildIgnoresPlaceholderCoordinates(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/org/example/lib/1.0/lib-1.0.pom", pom("${project.groupId}", "lib", "${revision}", "jar"))

	_, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)

	md := f.metadata(t, "/org/example/lib/maven-metadata.xml")
	assert.Equal(t, "org.example", md.GroupID)
	assert.Equal(t, "lib", md.ArtifactID)
	require.NotNil(t, md.Versioning)
	assert.Equal(t, []string{"1.0"}, md.Versioning.Versions)
	assert.False(t, f.exists(t, "/${project.groupId}"))
}

func TestRebuildRemovesObsoleteSidecarsAndMetadata(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/g/a/1.0/a-1.0.jar.sha1", []byte("deadbeef"))
	f.put(t, "/g/a/1.0/a-1.0.jar.md5", []byte("deadbeef"))
	f.put(t, "/g/a/1.0/maven-metadata.xml", []byte("<metadata><groupId>g</groupId></metadata>"))
	f.put(t, "/g/a/1.0/a-1.0.txt", []byte("keep"))

	stats, err := f.crawl.Rebuild(context.Background(), "/g")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SidecarsRemoved)
	assert.Equal(t, 1, stats.MetadataRemoved)

	assert.False(t, f.exists(t, "/g/a/1.0/a-1.0.jar.sha1"))
	assert.False(t, f.exists(t, "/g/a/1.0/a-1.0.jar.md5"))
	assert.False(t, f.exists(t, "/g/a/1.0/maven-metadata.xml"))
	assert.False(t, f.exists(t, "/g/a/1.0/maven-metadata.xml.sha1"))
	assert.True(t, f.exists(t, "/g/a/1.0/a-1.0.txt"))
	assert.True(t, f.exists(t, "/g/a/1.0/a-1.0.txt.sha1"))
}

func TestRebuildReplacesCorruptMetadata(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/g/a/1.0/a-1.0.pom", pom("g", "a", "1.0", "jar"))
	f.put(t, "/g/a/maven-metadata.xml", []byte("<metadata><versioning>"))

	stats, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MetadataWritten)

	md := f.metadata(t, "/g/a/maven-metadata.xml")
	assert.Equal(t, []string{"1.0"}, md.Versioning.Versions)
	verified, err := f.checksums.Verify(context.Background(), "/g/a/maven-metadata.xml")
	require.NoError(t, err)
	for name, ok := range verified {
		assert.True(t, ok, name)
	}
}

func writePluginJar(t *testing.T, prefix string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entry, err := w.Create(maven.PluginDescriptorPath)
	require.NoError(t, err)
	_, err = io.WriteString(entry, "<plugin><goalPrefix>"+prefix+"</goalPrefix></plugin>")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRebuildGroupPlugins(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/org/mojo/demo-maven-plugin/1.0/demo-maven-plugin-1.0.pom",
		pom("org.mojo", "demo-maven-plugin", "1.0", "maven-plugin"))
	f.put(t, "/org/mojo/demo-maven-plugin/1.1/demo-maven-plugin-1.1.pom",
		pom("org.mojo", "demo-maven-plugin", "1.1", "maven-plugin"))
	f.put(t, "/org/mojo/tool-plugin/2.0/tool-plugin-2.0.pom",
		pom("org.mojo", "tool-plugin", "2.0", "maven-plugin"))
	f.put(t, "/org/mojo/tool-plugin/2.0/tool-plugin-2.0.jar", writePluginJar(t, "tooling"))

	_, err := f.crawl.Rebuild(context.Background(), "/org")
	require.NoError(t, err)

	md := f.metadata(t, "/org/mojo/maven-metadata.xml")
	require.Len(t, md.Plugins, 2)
	assert.ElementsMatch(t, []maven.Plugin{
		{Name: "demo-maven-plugin", Prefix: "demo", ArtifactID: "demo-maven-plugin"},
		{Name: "tool-plugin", Prefix: "tooling", ArtifactID: "tool-plugin"},
	}, md.Plugins)
	assert.Nil(t, md.Versioning)
}

func TestRebuildKeepsPriorSnapshotVersionSplit(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/g/a/1.0-SNAPSHOT/a-1.0-20240101.120000-1-dist.tar.gz", []byte("archive"))

	prior := &maven.Metadata{
		GroupID:    "g",
		ArtifactID: "a",
		Version:    "1.0-SNAPSHOT",
		Versioning: &maven.Versioning{
			Snapshot: &maven.Snapshot{Timestamp: "20240101.120000", BuildNumber: 1},
			SnapshotVersions: []maven.SnapshotVersion{{
				Classifier: "dist.tar",
				Extension:  "gz",
				Value:      "1.0-20240101.120000-1",
				Updated:    "20240101120000",
			}},
		},
	}
	body, err := prior.Bytes()
	require.NoError(t, err)
	f.put(t, "/g/a/1.0-SNAPSHOT/maven-metadata.xml", body)

	stats, err := f.crawl.Rebuild(context.Background(), "/g/a/1.0-SNAPSHOT")
	require.NoError(t, err)
	assert.Zero(t, stats.MetadataWritten)

	md := f.metadata(t, "/g/a/1.0-SNAPSHOT/maven-metadata.xml")
	require.Len(t, md.Versioning.SnapshotVersions, 1)
	assert.Equal(t, "dist.tar", md.Versioning.SnapshotVersions[0].Classifier)
	assert.Equal(t, "gz", md.Versioning.SnapshotVersions[0].Extension)
}

func TestRebuildSkipsHiddenTree(t *testing.T) {
	f := newFixture(t)
	f.put(t, "/g/a/1.0/a-1.0.pom", pom("g", "a", "1.0", "jar"))
	hidden := filepath.Join(f.storage.Root(), ".index", "blob")
	require.NoError(t, os.MkdirAll(filepath.Dir(hidden), 0o755))
	require.NoError(t, os.WriteFile(hidden, []byte("x"), 0o644))

	_, err := f.crawl.Rebuild(context.Background(), "/")
	require.NoError(t, err)
	_, err = os.Stat(hidden + ".sha1")
	assert.True(t, os.IsNotExist(err))
}
