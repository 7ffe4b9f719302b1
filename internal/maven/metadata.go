package maven

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"
)

// ModelVersion 写入 <metadata modelVersion>。
const ModelVersion = "1.1.0"

// TimestampLayout 是 lastUpdated 与 snapshotVersion.updated 的格式。
const TimestampLayout = "20060102150405"

// SnapshotTimestampLayout 是快照文件名中时间戳的格式。
const SnapshotTimestampLayout = "20060102.150405"

// ErrCorruptMetadata 表示 maven-metadata.xml 无法解析。
var ErrCorruptMetadata = errors.New("corrupt maven metadata")

// Metadata 对应 maven-metadata.xml。
type Metadata struct {
	XMLName      xml.Name    `xml:"metadata"`
	ModelVersion string      `xml:"modelVersion,attr,omitempty"`
	GroupID      string      `xml:"groupId,omitempty"`
	ArtifactID   string      `xml:"artifactId,omitempty"`
	Version      string      `xml:"version,omitempty"`
	Versioning   *Versioning `xml:"versioning,omitempty"`
	Plugins      []Plugin    `xml:"plugins>plugin,omitempty"`
}

// Versioning 汇总 artifact 或快照版本目录的版本信息。
type Versioning struct {
	Latest           string            `xml:"latest,omitempty"`
	Release          string            `xml:"release,omitempty"`
	Snapshot         *Snapshot         `xml:"snapshot,omitempty"`
	Versions         []string          `xml:"versions>version,omitempty"`
	LastUpdated      string            `xml:"lastUpdated,omitempty"`
	SnapshotVersions []SnapshotVersion `xml:"snapshotVersions>snapshotVersion,omitempty"`
}

// Snapshot 记录最新的快照构建。
type Snapshot struct {
	Timestamp   string `xml:"timestamp,omitempty"`
	BuildNumber int    `xml:"buildNumber,omitempty"`
	LocalCopy   bool   `xml:"localCopy,omitempty"`
}

// SnapshotVersion 描述快照目录中一个具体文件。
type SnapshotVersion struct {
	Classifier string `xml:"classifier,omitempty"`
	Extension  string `xml:"extension"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated"`
}

// Key 返回 "value|classifier.extension"，用于合并同一文件的记录。
func (v SnapshotVersion) Key() string {
	return v.Value + "|" + v.Classifier + "." + v.Extension
}

// Plugin 是 group 级元数据中的插件条目。
type Plugin struct {
	Name       string `xml:"name"`
	Prefix     string `xml:"prefix"`
	ArtifactID string `xml:"artifactId"`
}

// metadataXML 是写出时使用的形式：列表的外层元素为空时整体省略，
// 直接在切片上使用 "a>b,omitempty" 仍会留下空的外层元素。
type metadataXML struct {
	ModelVersion string         `xml:"modelVersion,attr,omitempty"`
	GroupID      string         `xml:"groupId,omitempty"`
	ArtifactID   string         `xml:"artifactId,omitempty"`
	Version      string         `xml:"version,omitempty"`
	Versioning   *versioningXML `xml:"versioning,omitempty"`
	Plugins      *pluginsXML    `xml:"plugins,omitempty"`
}

type versioningXML struct {
	Latest           string               `xml:"latest,omitempty"`
	Release          string               `xml:"release,omitempty"`
	Snapshot         *Snapshot            `xml:"snapshot,omitempty"`
	Versions         *versionsXML         `xml:"versions,omitempty"`
	LastUpdated      string               `xml:"lastUpdated,omitempty"`
	SnapshotVersions *snapshotVersionsXML `xml:"snapshotVersions,omitempty"`
}

type pluginsXML struct {
	Plugin []Plugin `xml:"plugin"`
}

type versionsXML struct {
	Version []string `xml:"version"`
}

type snapshotVersionsXML struct {
	SnapshotVersion []SnapshotVersion `xml:"snapshotVersion"`
}

// MarshalXML 写出 <metadata>，省略空列表的外层元素。
func (m Metadata) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	out := metadataXML{
		ModelVersion: m.ModelVersion,
		GroupID:      m.GroupID,
		ArtifactID:   m.ArtifactID,
		Version:      m.Version,
	}
	if len(m.Plugins) > 0 {
		out.Plugins = &pluginsXML{Plugin: m.Plugins}
	}
	if v := m.Versioning; v != nil {
		out.Versioning = &versioningXML{
			Latest:      v.Latest,
			Release:     v.Release,
			Snapshot:    v.Snapshot,
			LastUpdated: v.LastUpdated,
		}
		if len(v.Versions) > 0 {
			out.Versioning.Versions = &versionsXML{Version: v.Versions}
		}
		if len(v.SnapshotVersions) > 0 {
			out.Versioning.SnapshotVersions = &snapshotVersionsXML{SnapshotVersion: v.SnapshotVersions}
		}
	}
	start = xml.StartElement{Name: xml.Name{Local: "metadata"}}
	return e.EncodeElement(out, start)
}

// ReadMetadata 解析 maven-metadata.xml，失败时返回包装了 ErrCorruptMetadata 的错误。
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var md Metadata
	if err := xml.NewDecoder(r).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	if md.XMLName.Local != "metadata" {
		return nil, fmt.Errorf("%w: unexpected root element %q", ErrCorruptMetadata, md.XMLName.Local)
	}
	return &md, nil
}

// Bytes 以固定缩进序列化，相同内容总是得到相同字节。
func (m *Metadata) Bytes() ([]byte, error) {
	out := *m
	if out.ModelVersion == "" {
		out.ModelVersion = ModelVersion
	}
	body, err := xml.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(body) + 1)
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FormatTimestamp 以 UTC 输出 lastUpdated 格式的时间。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SnapshotTimestampToUpdated 把 "20240101.120000" 转为 "20240101120000"。
func SnapshotTimestampToUpdated(timestamp string) string {
	t, err := time.Parse(SnapshotTimestampLayout, timestamp)
	if err != nil {
		return ""
	}
	return t.Format(TimestampLayout)
}
