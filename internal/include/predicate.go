package include

// IsPathIncluded reports whether candidate matches one of the include
// patterns and none of the exclude patterns, both anchored at basePath.
// It does not touch the filesystem.
func (inc *Include) IsPathIncluded(m Matcher, basePath, candidate string) bool {
	if !m.Match(anchor(basePath, inc.Patterns()), candidate) {
		return false
	}
	return !m.Match(anchor(basePath, inc.Excludes()), candidate)
}
