package mcpserver

// EntryFormatContract describes the tree entries returned by the tools so
// LLM consumers can interpret them without guessing.
const EntryFormatContract = `# projtree Entry Format

Every tool that returns entries encodes them as JSON objects:

` + "```" + `json
{
  "name": "engine.cpp",
  "full_path": "/work/app/src/core/engine.cpp",
  "relative_path": "src/core/engine.cpp",
  "is_directory": false,
  "is_link": false,
  "dependent_upon": "engine.h",
  "item_type": "ClCompile"
}
` + "```" + `

## Fields

1. **relative_path** is the virtual location inside the project tree. It
   uses forward slashes and is unique within one snapshot.
2. **full_path** is the physical file or directory. It is empty for purely
   virtual folders (filter folders, link folders).
3. **is_link** is true when the virtual location differs from the physical
   one: files placed by a filter, a ` + "`" + `Link` + "`" + ` or ` + "`" + `LinkBase` + "`" + ` template, or
   files outside the project directory.
4. **is_directory** marks folders. Folders are listed before their children.
5. **item_type** is the MSBuild item element that produced the entry
   (` + "`" + `ClCompile` + "`" + `, ` + "`" + `ClInclude` + "`" + `, ` + "`" + `None` + "`" + `, ...). Folders carry the type of
   the item that first created them.
6. **dependent_upon** is copied from the item's ` + "`" + `DependentUpon` + "`" + ` metadata.

## Diagnostics

Resolution never fails on a single bad pattern. Problems are reported as
diagnostics with a ` + "`" + `kind` + "`" + `:

- ` + "`" + `pattern_traversal_overflow` + "`" + `: a pattern climbs too many parent directories
  and was ignored.
- ` + "`" + `glob_expansion_failure` + "`" + `: a wildcard pattern could not be expanded.
- ` + "`" + `filesystem_stat_failure` + "`" + `: a matched path could not be inspected; its
  directory flag was guessed from the file extension.

## Paths in tool arguments

- ` + "`" + `parent` + "`" + ` and search results use ` + "`" + `relative_path` + "`" + ` values.
- ` + "`" + `is_path_included` + "`" + ` takes a physical path, absolute or relative to the
  project directory. Matching is case-sensitive and does not touch the disk.
`
