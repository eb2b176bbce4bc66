package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Skald Note Format Contract

Every Markdown note stored in Skald MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL - first H1 is used otherwise
tags:                               # OPTIONAL - YAML list; used for filtering
  - tag-one
  - tag-two
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use [[target#section]] to link to a heading inside a note.
Use ![[filename.png]] or ![[recording.mp3|caption]] to embed media.
` + "```" + `

## Rules

1. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension; path separators OK: ` + "`" + `[[folder/note]]` + "`" + `).
   Targets are matched case-insensitively, with or without the extension.
2. **Media embeds** are wikilinks prefixed with ` + "`" + `!` + "`" + ` and reference the bare
   filename with its extension: ` + "`" + `![[diagram.png]]` + "`" + `. The file is found anywhere
   in the vault by name. Verify targets with the resolve_link tool.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `).
   Inline ` + "`" + `#tags` + "`" + ` in the body are equivalent to frontmatter tags.
4. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes. Names must not
   contain ` + "`" + `< > : " | ? * \` + "`" + `, must not start or end with a dot or space, and
   must not be a reserved device name (CON, PRN, AUX, NUL, COM1-9, LPT1-9).
5. **Encoding** is UTF-8 with a trailing newline.
6. **No raw HTML** unless absolutely necessary; prefer Markdown equivalents.

## Example

` + "```" + `markdown
---
title: Weekly standup 2026-08-17
tags:
  - meeting-notes
  - project-x
---

# Weekly standup 2026-08-17

Attendees: Alice, Bob.

![[standup-whiteboard.jpg|Whiteboard photo]]

## Action items

- [[alice]] to review the [[design-doc#open-questions]]
- Bob to update [[project-x/roadmap|the roadmap]]
` + "```" + `
`
