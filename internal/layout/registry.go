package layout

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const defaultKey = "maven2"

var globalRegistry = newRegistry()

type registry struct {
	mu      sync.RWMutex
	layouts map[string]Metadata
}

func newRegistry() *registry {
	return &registry{layouts: make(map[string]Metadata)}
}

// Register 将布局加入全局注册表，重复键或缺少解析函数会返回错误。
func Register(meta Metadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 在注册失败时 panic，适合布局 init() 中调用。
func MustRegister(meta Metadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的布局。
func Resolve(key string) (Metadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的布局列表。
func List() []Metadata {
	return globalRegistry.list()
}

// Keys 返回所有已注册布局的键值。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = meta.Key
	}
	return result
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(meta Metadata) error {
	key := normalizeKey(meta.Key)
	if key == "" {
		return fmt.Errorf("layout key is required")
	}
	if meta.Resolver == nil {
		return fmt.Errorf("layout %s has no path resolver", key)
	}
	meta.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.layouts[key]; exists {
		return fmt.Errorf("layout %s already registered", key)
	}
	r.layouts[key] = meta
	return nil
}

func (r *registry) resolve(key string) (Metadata, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return Metadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.layouts[normalized]
	return meta, ok
}

func (r *registry) list() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.layouts) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.layouts))
	for key := range r.layouts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Metadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.layouts[key])
	}
	return result
}
