package include

import (
	"path"
	"path/filepath"
	"strings"
)

const globMeta = "*?[{"

func splitPatterns(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, globMeta)
}

// toSlash converts both separator styles to "/". Project files written on
// Windows use backslashes regardless of the host.
func toSlash(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
}

// cleanLeadingParents strips every leading "../" and "./" segment.
func cleanLeadingParents(pattern string) string {
	for {
		switch {
		case strings.HasPrefix(pattern, "../"):
			pattern = pattern[len("../"):]
		case strings.HasPrefix(pattern, "./"):
			pattern = pattern[len("./"):]
		default:
			return pattern
		}
	}
}

// searchPrefix returns the directory holding the first wildcard of pattern,
// "." when the wildcard sits in the first segment.
func searchPrefix(pattern string) string {
	i := strings.IndexAny(pattern, globMeta)
	if i < 0 {
		return path.Dir(pattern)
	}
	return path.Dir(pattern[:i+1])
}

// anchor joins relative patterns onto basePath; absolute patterns are kept.
// The result uses forward slashes.
func anchor(basePath string, patterns []string) []string {
	base := filepath.ToSlash(basePath)
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if filepath.IsAbs(p) {
			out = append(out, toSlash(p))
			continue
		}
		out = append(out, path.Join(base, toSlash(p)))
	}
	return out
}
