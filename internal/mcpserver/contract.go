package mcpserver

// RelocationContract describes the folder relocation operations that
// LLM consumers should read before calling relocate_folder.
const RelocationContract = `# Raido Folder Relocation Contract

The ` + "`" + `relocate_folder` + "`" + ` tool moves a whole folder inside the vault and
rewrites every [[wikilink]] that points into it. It never touches anything
outside the vault root.

## Operations

` + "```" + `json
// rename: change the final path segment, keep the parent
{"operation": "rename", "path": "projects/alpha", "new_name": "beta"}

// move: relocate under another folder, keep the name
{"operation": "move", "path": "projects/alpha", "destination": "done/2026"}

// archive: file away under a date bucket
{"operation": "archive", "path": "old-idea", "archive_base": "old-drafts", "date_format": "%Y-%m-%d"}
` + "```" + `

## Rules

1. **Folders only.** A path ending in ` + "`" + `.md` + "`" + `, ` + "`" + `.markdown` + "`" + `, or ` + "`" + `.txt` + "`" + ` is a
   document; use the ` + "`" + `manage_note` + "`" + ` tool for those.
2. **Paths are relative to the vault root.** Absolute paths, ` + "`" + `..` + "`" + ` segments,
   and symlinks are rejected.
3. **Protected folders** (` + "`" + `.obsidian` + "`" + `, ` + "`" + `.git` + "`" + `, ` + "`" + `.trash` + "`" + `, ` + "`" + `node_modules` + "`" + `)
   can be neither source nor destination.
4. **No overwrites.** If the computed destination already exists the call
   fails; pick a different name, remove the obstacle, or move elsewhere.
5. **Archive buckets** come from the strftime ` + "`" + `date_format` + "`" + ` (default
   ` + "`" + `%Y-%m-%d` + "`" + `). Slashes in the rendered date create nested folders, so
   ` + "`" + `%Y/%m` + "`" + ` yields ` + "`" + `archive/2025/01/<name>` + "`" + `.
6. **Link rewriting** covers ` + "`" + `[[target]]` + "`" + `, ` + "`" + `[[target|alias]]` + "`" + `,
   ` + "`" + `[[target#heading]]` + "`" + `, and ` + "`" + `![[embed]]` + "`" + ` forms. Aliases and headings are
   preserved. Set ` + "`" + `"update_links": false` + "`" + ` to skip rewriting.
7. **Dry runs** (` + "`" + `"dry_run": true` + "`" + `) report the destination and the affected
   documents without changing anything.
8. A successful move with link-rewrite warnings is still a success: the
   folder moved, and the listed documents need manual attention.

## Preview

Use ` + "`" + `affected_documents` + "`" + ` to see which documents link into a folder before
relocating it.
`
