package storage

// Platform 隔离与操作系统相关的细节：可读性探测与根路径规范化（例如 Windows UNC 根）。
type Platform interface {
	// Readable 报告当前进程能否读取该物理路径。
	Readable(path string) bool
	// Canonical 返回解析符号链接后的绝对路径。
	Canonical(path string) (string, error)
}
