package maven

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// PackagingMavenPlugin 标识 Maven 插件工程。
const PackagingMavenPlugin = "maven-plugin"

// POM 只保留元数据聚合需要的字段。
type POM struct {
	GroupID    string    `xml:"groupId"`
	ArtifactID string    `xml:"artifactId"`
	Version    string    `xml:"version"`
	Packaging  string    `xml:"packaging"`
	Name       string    `xml:"name"`
	Parent     POMParent `xml:"parent"`
}

// POMParent 对应 <parent> 元素，子工程可从中继承 groupId/version。
type POMParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// ParsePOM 解析 pom.xml，并去除各字段首尾空白。
func ParsePOM(r io.Reader) (POM, error) {
	var pom POM
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	if err := decoder.Decode(&pom); err != nil {
		return POM{}, fmt.Errorf("parse pom: %w", err)
	}
	pom.GroupID = strings.TrimSpace(pom.GroupID)
	pom.ArtifactID = strings.TrimSpace(pom.ArtifactID)
	pom.Version = strings.TrimSpace(pom.Version)
	pom.Packaging = strings.TrimSpace(pom.Packaging)
	pom.Name = strings.TrimSpace(pom.Name)
	pom.Parent.GroupID = strings.TrimSpace(pom.Parent.GroupID)
	pom.Parent.ArtifactID = strings.TrimSpace(pom.Parent.ArtifactID)
	pom.Parent.Version = strings.TrimSpace(pom.Parent.Version)
	return pom, nil
}

// EffectiveGroupID 返回 groupId，缺省时继承 parent。
func (p POM) EffectiveGroupID() string {
	if p.GroupID != "" {
		return p.GroupID
	}
	return p.Parent.GroupID
}

// EffectiveVersion 返回 version，缺省时继承 parent。
func (p POM) EffectiveVersion() string {
	if p.Version != "" {
		return p.Version
	}
	return p.Parent.Version
}

// EffectivePackaging 返回 packaging，缺省为 jar。
func (p POM) EffectivePackaging() string {
	if p.Packaging == "" {
		return "jar"
	}
	return p.Packaging
}
