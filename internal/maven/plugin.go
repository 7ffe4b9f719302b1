package maven

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/klauspost/compress/zip"
)

// PluginDescriptorPath 是插件 jar 内描述文件的位置。
const PluginDescriptorPath = "META-INF/maven/plugin.xml"

// ErrNoPluginDescriptor 表示 jar 中没有插件描述文件或其中没有 goalPrefix。
var ErrNoPluginDescriptor = errors.New("plugin descriptor not found")

var (
	mavenToken  = regexp.MustCompile(`-?maven-?`)
	pluginToken = regexp.MustCompile(`-?plugin-?`)
)

type pluginDescriptor struct {
	GoalPrefix string `xml:"goalPrefix"`
}

// ReadPluginPrefix 从插件 jar 的 META-INF/maven/plugin.xml 读取 goalPrefix。
func ReadPluginPrefix(jarPath string) (string, error) {
	reader, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", fmt.Errorf("open plugin jar: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if entry.Name != PluginDescriptorPath {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", PluginDescriptorPath, err)
		}
		var descriptor pluginDescriptor
		decoder := xml.NewDecoder(rc)
		decoder.Strict = false
		err = decoder.Decode(&descriptor)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", PluginDescriptorPath, err)
		}
		prefix := strings.TrimSpace(descriptor.GoalPrefix)
		if prefix == "" {
			return "", ErrNoPluginDescriptor
		}
		return prefix, nil
	}
	return "", ErrNoPluginDescriptor
}

// DerivePluginPrefix 按 Maven 约定从 artifactId 推导前缀：去掉 maven 与 plugin 片段。
func DerivePluginPrefix(artifactID string) string {
	if artifactID == "maven-plugin-plugin" {
		return "plugin"
	}
	prefix := mavenToken.ReplaceAllString(artifactID, "")
	return pluginToken.ReplaceAllString(prefix, "")
}
