// Package maven holds the Maven2 repository primitives used by the metadata
// pipeline: path <-> GAV translation, version ordering, POM and plugin
// descriptor parsing and the maven-metadata.xml document model.
package maven

import (
	"regexp"
	"strconv"
	"strings"
)

// MetadataFileName 是目录级元数据文件名。
const MetadataFileName = "maven-metadata.xml"

const snapshotSuffix = "SNAPSHOT"

var (
	hashSuffixes      = []string{".sha512", ".sha256", ".sha1", ".md5"}
	signatureSuffixes = []string{".asc"}
	timestampPattern  = regexp.MustCompile(`^(\d{8}\.\d{6})-(\d+)`)
	versionTimestamp  = regexp.MustCompile(`-(\d{8}\.\d{6})-(\d+)$`)
)

// Gav 是由仓库路径解析出的坐标。Version 为文件实际版本（快照时带时间戳），
// BaseVersion 为目录版本。
type Gav struct {
	GroupID             string
	ArtifactID          string
	Version             string
	BaseVersion         string
	Classifier          string
	Extension           string
	Snapshot            bool
	SnapshotTimestamp   string
	SnapshotBuildNumber int
	Hash                bool
	HashType            string
	Signature           bool
	SignatureType       string
	Name                string
}

// IsSnapshot 判断版本是否为快照版本（基础版本或带时间戳版本均可）。
func IsSnapshot(version string) bool {
	if strings.HasSuffix(version, snapshotSuffix) {
		return true
	}
	return versionTimestamp.MatchString(version)
}

// ParseSnapshotVersion 从带时间戳的快照版本末尾解析 timestamp 与 buildNumber。
func ParseSnapshotVersion(version string) (timestamp string, buildNumber int, ok bool) {
	m := versionTimestamp.FindStringSubmatch(version)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// PathToGav 按 Maven2 布局 /group/path/artifactId/version/file 解析坐标。
// 元数据文件与不符合布局的路径返回 false。
func PathToGav(path string) (Gav, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 4 {
		return Gav{}, false
	}
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return Gav{}, false
		}
	}

	fileName := segments[len(segments)-1]
	baseVersion := segments[len(segments)-2]
	artifactID := segments[len(segments)-3]
	groupID := strings.Join(segments[:len(segments)-3], ".")

	gav := Gav{
		GroupID:     groupID,
		ArtifactID:  artifactID,
		BaseVersion: baseVersion,
		Name:        fileName,
	}

	rest := fileName
	for _, suffix := range hashSuffixes {
		if strings.HasSuffix(rest, suffix) {
			gav.Hash = true
			gav.HashType = strings.TrimPrefix(suffix, ".")
			rest = strings.TrimSuffix(rest, suffix)
			break
		}
	}
	for _, suffix := range signatureSuffixes {
		if strings.HasSuffix(rest, suffix) {
			gav.Signature = true
			gav.SignatureType = strings.TrimPrefix(suffix, ".")
			rest = strings.TrimSuffix(rest, suffix)
			break
		}
	}
	if strings.HasPrefix(rest, MetadataFileName) {
		return Gav{}, false
	}

	prefix := artifactID + "-"
	if !strings.HasPrefix(rest, prefix) {
		return Gav{}, false
	}
	tail := rest[len(prefix):]

	if strings.HasSuffix(baseVersion, snapshotSuffix) {
		gav.Snapshot = true
		versionPrefix := strings.TrimSuffix(baseVersion, snapshotSuffix)
		if !strings.HasPrefix(tail, versionPrefix) {
			return Gav{}, false
		}
		afterPrefix := tail[len(versionPrefix):]
		switch {
		case strings.HasPrefix(afterPrefix, snapshotSuffix):
			gav.Version = baseVersion
			tail = afterPrefix[len(snapshotSuffix):]
		default:
			m := timestampPattern.FindStringSubmatch(afterPrefix)
			if m == nil {
				return Gav{}, false
			}
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return Gav{}, false
			}
			gav.SnapshotTimestamp = m[1]
			gav.SnapshotBuildNumber = n
			gav.Version = versionPrefix + m[0]
			tail = afterPrefix[len(m[0]):]
		}
	} else {
		if !strings.HasPrefix(tail, baseVersion) {
			return Gav{}, false
		}
		gav.Version = baseVersion
		tail = tail[len(baseVersion):]
	}

	switch {
	case strings.HasPrefix(tail, "-"):
		dot := strings.Index(tail, ".")
		if dot < 0 {
			return Gav{}, false
		}
		gav.Classifier = tail[1:dot]
		gav.Extension = tail[dot+1:]
	case strings.HasPrefix(tail, "."):
		gav.Extension = tail[1:]
	default:
		return Gav{}, false
	}
	if gav.Extension == "" || (strings.HasPrefix(tail, "-") && gav.Classifier == "") {
		return Gav{}, false
	}
	return gav, true
}

// ComposePath 是 PathToGav 的逆操作。
func ComposePath(gav Gav) string {
	baseVersion := gav.BaseVersion
	if baseVersion == "" {
		baseVersion = gav.Version
	}
	version := gav.Version
	if version == "" {
		version = baseVersion
	}

	var b strings.Builder
	b.WriteString("/")
	b.WriteString(strings.ReplaceAll(gav.GroupID, ".", "/"))
	b.WriteString("/")
	b.WriteString(gav.ArtifactID)
	b.WriteString("/")
	b.WriteString(baseVersion)
	b.WriteString("/")
	b.WriteString(gav.ArtifactID)
	b.WriteString("-")
	b.WriteString(version)
	if gav.Classifier != "" {
		b.WriteString("-")
		b.WriteString(gav.Classifier)
	}
	b.WriteString(".")
	b.WriteString(gav.Extension)
	if gav.Signature {
		b.WriteString(".")
		b.WriteString(gav.SignatureType)
	}
	if gav.Hash {
		b.WriteString(".")
		b.WriteString(gav.HashType)
	}
	return b.String()
}

// GroupPath 将 groupId 转换为仓库目录路径。
func GroupPath(groupID string) string {
	return "/" + strings.ReplaceAll(groupID, ".", "/")
}

// ArtifactPath 返回 groupId/artifactId 的目录路径。
func ArtifactPath(groupID, artifactID string) string {
	return GroupPath(groupID) + "/" + artifactID
}

// VersionPath 返回 groupId/artifactId/version 的目录路径。
func VersionPath(groupID, artifactID, version string) string {
	return ArtifactPath(groupID, artifactID) + "/" + version
}
