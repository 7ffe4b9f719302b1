package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"strings"
)

// Algorithm 描述一种摘要算法及其旁路文件后缀。
type Algorithm struct {
	Name   string
	Suffix string
	newFn  func() hash.Hash
}

var (
	MD5    = Algorithm{Name: "md5", Suffix: ".md5", newFn: md5.New}
	SHA1   = Algorithm{Name: "sha1", Suffix: ".sha1", newFn: sha1.New}
	SHA256 = Algorithm{Name: "sha256", Suffix: ".sha256", newFn: sha256.New}
	SHA512 = Algorithm{Name: "sha512", Suffix: ".sha512", newFn: sha512.New}
)

var algorithms = []Algorithm{SHA1, MD5, SHA256, SHA512}

// All 返回全部支持的算法，SHA1 排在首位，它同时是陈旧判定的依据。
func All() []Algorithm {
	out := make([]Algorithm, len(algorithms))
	copy(out, algorithms)
	return out
}

// Digests 以算法名为键保存小写十六进制摘要。
type Digests map[string]string

// Get 返回指定算法的摘要。
func (d Digests) Get(alg Algorithm) string {
	return d[alg.Name]
}

// Complete 报告是否包含全部算法的摘要。
func (d Digests) Complete() bool {
	for _, alg := range algorithms {
		if d[alg.Name] == "" {
			return false
		}
	}
	return true
}

// Compute 单次读取 r 并同时计算全部摘要，适用于不可重复读取的数据流。
func Compute(r io.Reader) (Digests, error) {
	hashes := make([]hash.Hash, len(algorithms))
	writers := make([]io.Writer, len(algorithms))
	for i, alg := range algorithms {
		hashes[i] = alg.newFn()
		writers[i] = hashes[i]
	}
	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, err
	}
	out := make(Digests, len(algorithms))
	for i, alg := range algorithms {
		out[alg.Name] = hex.EncodeToString(hashes[i].Sum(nil))
	}
	return out, nil
}

// IsSidecar 判断路径是否为摘要旁路文件。
func IsSidecar(path string) bool {
	_, ok := sidecarAlgorithm(path)
	return ok
}

// ContentPath 返回旁路文件对应的正文路径；非旁路文件原样返回。
func ContentPath(sidecarPath string) string {
	if alg, ok := sidecarAlgorithm(sidecarPath); ok {
		return strings.TrimSuffix(sidecarPath, alg.Suffix)
	}
	return sidecarPath
}

// SidecarPath 返回正文路径在指定算法下的旁路文件路径。
func SidecarPath(path string, alg Algorithm) string {
	return path + alg.Suffix
}

func sidecarAlgorithm(path string) (Algorithm, bool) {
	for _, alg := range algorithms {
		if strings.HasSuffix(path, alg.Suffix) && len(path) > len(alg.Suffix) {
			return alg, true
		}
	}
	return Algorithm{}, false
}
