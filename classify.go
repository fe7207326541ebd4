package toolrpc

import "github.com/gobwas/glob"

// writeToolPatterns matches tool names that mutate remote state. The
// classification is derived from the name alone; server metadata can never
// override it.
var writeToolPatterns = compileWriteToolPatterns()

func compileWriteToolPatterns() []glob.Glob {
	prefixes := []string{
		"create", "update", "delete", "edit", "file", "generate",
		"cancel", "reconcile", "import", "adjust", "stock", "record",
	}

	globs := make([]glob.Glob, len(prefixes))
	for i, prefix := range prefixes {
		globs[i] = glob.MustCompile(prefix + "*")
	}
	return globs
}

// IsWriteTool reports whether a tool name is classified as mutating. Write
// tools get the longer call timeout and a single retry when no result
// arrives.
func IsWriteTool(name string) bool {
	for _, g := range writeToolPatterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}
