package maven

import (
	"sort"
	"strconv"
	"strings"
)

// qualifierRank 描述 Maven 限定符的先后顺序，空限定符代表正式版本。
var qualifierRank = map[string]int{
	"alpha":     0,
	"beta":      1,
	"milestone": 2,
	"rc":        3,
	"snapshot":  4,
	"":          5,
	"sp":        6,
}

var qualifierAliases = map[string]string{
	"a":       "alpha",
	"b":       "beta",
	"m":       "milestone",
	"cr":      "rc",
	"ga":      "",
	"final":   "",
	"release": "",
}

const unknownQualifierRank = 7

type versionItem struct {
	numeric bool
	num     int64
	text    string
}

func parseVersionItems(version string) []versionItem {
	version = strings.ToLower(strings.TrimSpace(version))
	var (
		items   []versionItem
		current strings.Builder
		digits  bool
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := current.String()
		current.Reset()
		if digits {
			n, err := strconv.ParseInt(token, 10, 64)
			if err == nil {
				items = append(items, versionItem{numeric: true, num: n})
				return
			}
		}
		if alias, ok := qualifierAliases[token]; ok {
			token = alias
		}
		items = append(items, versionItem{text: token})
	}

	for _, r := range version {
		isDigit := r >= '0' && r <= '9'
		switch {
		case r == '.' || r == '-' || r == '_':
			flush()
		case current.Len() > 0 && isDigit != digits:
			flush()
			current.WriteRune(r)
			digits = isDigit
		default:
			if current.Len() == 0 {
				digits = isDigit
			}
			current.WriteRune(r)
		}
	}
	flush()

	// 末尾的 0 与正式版本限定符不影响排序，"1.0" 与 "1" 等价。
	for len(items) > 0 {
		last := items[len(items)-1]
		if (last.numeric && last.num == 0) || (!last.numeric && last.text == "") {
			items = items[:len(items)-1]
			continue
		}
		break
	}
	return items
}

func rankOf(text string) int {
	if rank, ok := qualifierRank[text]; ok {
		return rank
	}
	return unknownQualifierRank
}

func compareItem(a, b *versionItem) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -compareItem(b, nil)
	}

	if a.numeric {
		switch {
		case b == nil:
			if a.num == 0 {
				return 0
			}
			return 1
		case b.numeric:
			switch {
			case a.num < b.num:
				return -1
			case a.num > b.num:
				return 1
			}
			return 0
		default:
			return 1
		}
	}

	switch {
	case b == nil:
		return compareInts(rankOf(a.text), rankOf(""))
	case b.numeric:
		return -1
	}
	ra, rb := rankOf(a.text), rankOf(b.text)
	if ra != rb {
		return compareInts(ra, rb)
	}
	if ra == unknownQualifierRank {
		return strings.Compare(a.text, b.text)
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareVersions 按 Maven 语义比较两个版本号，返回 -1/0/1。
func CompareVersions(a, b string) int {
	ia := parseVersionItems(a)
	ib := parseVersionItems(b)
	n := len(ia)
	if len(ib) > n {
		n = len(ib)
	}
	for i := 0; i < n; i++ {
		var x, y *versionItem
		if i < len(ia) {
			x = &ia[i]
		}
		if i < len(ib) {
			y = &ib[i]
		}
		if c := compareItem(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// SortVersions 去重并按 Maven 顺序升序排列。
func SortVersions(versions []string) []string {
	seen := make(map[string]struct{}, len(versions))
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := CompareVersions(out[i], out[j]); c != 0 {
			return c < 0
		}
		return out[i] < out[j]
	})
	return out
}

// LatestAndRelease 返回版本列表中的最新版本与最新正式版本。
func LatestAndRelease(versions []string) (latest, release string) {
	sorted := SortVersions(versions)
	for i := len(sorted) - 1; i >= 0; i-- {
		if latest == "" {
			latest = sorted[i]
		}
		if release == "" && !IsSnapshot(sorted[i]) {
			release = sorted[i]
		}
		if latest != "" && release != "" {
			break
		}
	}
	return latest, release
}
