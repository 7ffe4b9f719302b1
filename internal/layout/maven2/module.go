// Package maven2 注册标准 Maven2 仓库布局：/group/path/artifactId/version/file。
package maven2

import (
	"github.com/any-hub/any-repo/internal/layout"
	"github.com/any-hub/any-repo/internal/maven"
)

// Key 是该布局在配置中的名称。
const Key = "maven2"

func init() {
	layout.MustRegister(layout.Metadata{
		Key:          Key,
		Description:  "Maven2 repository layout with maven-metadata.xml aggregation",
		Maturity:     layout.MaturityGA,
		MetadataFile: maven.MetadataFileName,
		Resolver:     maven.PathToGav,
	})
}
