package layout

import "github.com/any-hub/any-repo/internal/maven"

// Maturity 描述布局的上线阶段，方便诊断端区分 beta/ga。
type Maturity string

const (
	MaturityBeta Maturity = "beta"
	MaturityGA   Maturity = "ga"
)

// PathResolver 将逻辑路径解析为坐标，不符合布局的路径返回 false。
type PathResolver func(path string) (maven.Gav, bool)

// PathToGav 让 PathResolver 满足元数据流水线需要的解析接口。
func (f PathResolver) PathToGav(path string) (maven.Gav, bool) {
	return f(path)
}

// Metadata 记录一个布局的静态信息，供配置校验和诊断端使用。
type Metadata struct {
	Key         string
	Description string
	Maturity    Maturity
	// MetadataFile 是该布局目录级元数据的文件名，为空表示布局不维护元数据。
	MetadataFile string
	Resolver     PathResolver
}

// DefaultKey 返回未显式配置时使用的布局。
func DefaultKey() string {
	return defaultKey
}
