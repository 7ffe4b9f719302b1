package storage

import (
	"bytes"
	"strings"
)

// linkPrefix 是链接条目落盘内容的固定头部。
const linkPrefix = "LINK to "

// linkSniffLimit 限制链接探测读取的字节数，超过该大小的文件不可能是链接。
const linkSniffLimit = 4096

// IsLinkContent 判断一段内容头部是否为链接标记，与操作系统无关。
func IsLinkContent(head []byte) bool {
	return bytes.HasPrefix(head, []byte(linkPrefix))
}

// ParseLinkContent 从链接标记内容中提取目标路径。
func ParseLinkContent(content []byte) (string, bool) {
	if !IsLinkContent(content) {
		return "", false
	}
	target := strings.TrimSpace(string(content[len(linkPrefix):]))
	if target == "" {
		return "", false
	}
	return NormalizePath(target), true
}

func linkContent(target string) []byte {
	return []byte(linkPrefix + NormalizePath(target))
}
