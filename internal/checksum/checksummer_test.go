package checksum

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/any-repo/internal/attributes"
	"github.com/any-hub/any-repo/internal/storage"
)

func newChecksummer(t *testing.T) (*Checksummer, *storage.LocalStorage, attributes.Store) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir(), storage.Options{})
	require.NoError(t, err)
	attrs := attributes.NewFileStore(s)
	return NewChecksummer(s, attrs, nil), s, attrs
}

func put(t *testing.T, s *storage.LocalStorage, p, body string) {
	t.Helper()
	require.NoError(t, s.StoreItem(context.Background(), &storage.FileItem{
		Path:    p,
		Content: storage.BytesLocator(body),
		Length:  int64(len(body)),
	}))
}

func read(t *testing.T, s *storage.LocalStorage, p string) string {
	t.Helper()
	target, err := s.Resolve(p)
	require.NoError(t, err)
	body, err := os.ReadFile(target)
	require.NoError(t, err)
	return string(body)
}

func TestComputeMatchesStandardDigest(t *testing.T) {
	digests, err := Compute(strings.NewReader("abc"))
	require.NoError(t, err)
	sum := sha1.Sum([]byte("abc"))
	assert.Equal(t, hex.EncodeToString(sum[:]), digests.Get(SHA1))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", digests.Get(MD5))
	assert.True(t, digests.Complete())
}

func TestSidecarPaths(t *testing.T) {
	assert.True(t, IsSidecar("/a/b.jar.sha256"))
	assert.False(t, IsSidecar("/a/b.jar"))
	assert.False(t, IsSidecar(".md5"))
	assert.Equal(t, "/a/b.jar", ContentPath("/a/b.jar.sha512"))
	assert.Equal(t, "/a/b.jar.md5", SidecarPath("/a/b.jar", MD5))
	assert.Len(t, All(), 4)
}

func TestRebuildWritesAllSidecars(t *testing.T) {
	c, s, _ := newChecksummer(t)
	put(t, s, "/g/a.jar", "artifact")

	rewritten, err := c.Rebuild(context.Background(), "/g/a.jar", false)
	require.NoError(t, err)
	assert.True(t, rewritten)

	sum := sha1.Sum([]byte("artifact"))
	assert.Equal(t, hex.EncodeToString(sum[:]), read(t, s, "/g/a.jar.sha1"))
	for _, alg := range All() {
		ok, err := s.ContainsItem(context.Background(), SidecarPath("/g/a.jar", alg))
		require.NoError(t, err)
		assert.True(t, ok, alg.Name)
	}

	rewritten, err = c.Rebuild(context.Background(), "/g/a.jar", false)
	require.NoError(t, err)
	assert.False(t, rewritten, "fresh sidecars must not be rewritten")

	rewritten, err = c.Rebuild(context.Background(), "/g/a.jar", true)
	require.NoError(t, err)
	assert.True(t, rewritten)
}

func TestRebuildOnlyConsultsSHA1(t *testing.T) {
	c, s, _ := newChecksummer(t)
	put(t, s, "/a.jar", "artifact")
	_, err := c.Rebuild(context.Background(), "/a.jar", false)
	require.NoError(t, err)

	put(t, s, "/a.jar.md5", "stale")
	rewritten, err := c.Rebuild(context.Background(), "/a.jar", false)
	require.NoError(t, err)
	assert.False(t, rewritten)
	assert.Equal(t, "stale", read(t, s, "/a.jar.md5"))

	put(t, s, "/a.jar.sha1", "0000  a.jar\n")
	rewritten, err = c.Rebuild(context.Background(), "/a.jar", false)
	require.NoError(t, err)
	assert.True(t, rewritten)
	assert.NotEqual(t, "stale", read(t, s, "/a.jar.md5"))
}

func TestRebuildDetectsChangedContent(t *testing.T) {
	c, s, attrs := newChecksummer(t)
	put(t, s, "/a.jar", "first")
	_, err := c.Rebuild(context.Background(), "/a.jar", false)
	require.NoError(t, err)
	record, err := attrs.Get(context.Background(), "/a.jar")
	require.NoError(t, err)
	assert.Equal(t, int64(5), record.Length)

	put(t, s, "/a.jar", "second-version")
	rewritten, err := c.Rebuild(context.Background(), "/a.jar", false)
	require.NoError(t, err)
	assert.True(t, rewritten)

	sum := sha1.Sum([]byte("second-version"))
	assert.Equal(t, hex.EncodeToString(sum[:]), read(t, s, "/a.jar.sha1"))
	verified, err := c.Verify(context.Background(), "/a.jar")
	require.NoError(t, err)
	for name, ok := range verified {
		assert.True(t, ok, name)
	}
}

func TestRebuildDetectsSameLengthReplacement(t *testing.T) {
	c, s, _ := newChecksummer(t)
	ctx := context.Background()
	modified := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := func(body string) {
		require.NoError(t, s.StoreItem(ctx, &storage.FileItem{
			Path:     "/g/a/1.0/a-1.0.jar",
			Content:  storage.BytesLocator(body),
			Length:   int64(len(body)),
			Modified: modified,
		}))
	}

	store("aaa")
	rewritten, err := c.Rebuild(ctx, "/g/a/1.0/a-1.0.jar", false)
	require.NoError(t, err)
	assert.True(t, rewritten)

	store("bbb")
	rewritten, err = c.Rebuild(ctx, "/g/a/1.0/a-1.0.jar", false)
	require.NoError(t, err)
	assert.True(t, rewritten, "同长度同修改时间的新正文必须重写旁路文件")

	sum := sha1.Sum([]byte("bbb"))
	assert.Equal(t, hex.EncodeToString(sum[:]), read(t, s, "/g/a/1.0/a-1.0.jar.sha1"))

	digests, err := c.Digests(ctx, "/g/a/1.0/a-1.0.jar")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), digests.Get(SHA1))
}

func TestObsoleteSidecarsAndRemoval(t *testing.T) {
	c, s, attrs := newChecksummer(t)
	put(t, s, "/a.jar", "artifact")
	_, err := c.Rebuild(context.Background(), "/a.jar", false)
	require.NoError(t, err)

	obsolete, err := c.IsObsoleteSidecar(context.Background(), "/a.jar.sha1")
	require.NoError(t, err)
	assert.False(t, obsolete)

	require.NoError(t, s.ShredItem(context.Background(), "/a.jar"))
	obsolete, err = c.IsObsoleteSidecar(context.Background(), "/a.jar.sha1")
	require.NoError(t, err)
	assert.True(t, obsolete)

	require.NoError(t, c.RemoveSidecars(context.Background(), "/a.jar"))
	for _, alg := range All() {
		ok, err := s.ContainsItem(context.Background(), SidecarPath("/a.jar", alg))
		require.NoError(t, err)
		assert.False(t, ok, alg.Name)
	}
	_, err = attrs.Get(context.Background(), "/a.jar")
	assert.ErrorIs(t, err, attributes.ErrNotFound)
}

func TestDigestsRejectsDirectory(t *testing.T) {
	c, s, _ := newChecksummer(t)
	require.NoError(t, s.StoreItem(context.Background(), &storage.CollectionItem{Path: "/dir"}))
	_, err := c.Digests(context.Background(), "/dir")
	assert.ErrorIs(t, err, storage.ErrUnsupportedOperation)

	_, err = c.Digests(context.Background(), "/absent")
	assert.ErrorIs(t, err, storage.ErrItemNotFound)
}
