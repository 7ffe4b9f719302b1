package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// StorageFields 提供仓库/动作/逻辑路径字段，供存储操作日志复用。
func StorageFields(repo, action, path string) logrus.Fields {
	return logrus.Fields{
		"repository": repo,
		"action":     action,
		"path":       path,
	}
}

// CrawlFields 标识一次元数据重建遍历。
func CrawlFields(repo, crawlID, path string) logrus.Fields {
	return logrus.Fields{
		"repository": repo,
		"action":     "rebuild",
		"crawl_id":   crawlID,
		"path":       path,
	}
}
