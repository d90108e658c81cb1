package mcpserver

// RecordFormat describes the record layout the lifecycle operations rely on.
const RecordFormat = `# Record Format

Records live flat in the records directory and are named ` + "`NNNN-slug.md`" + `:
a four-digit index and the lower-cased title with spaces turned into hyphens
(` + "`Use Bob's queue`" + ` becomes ` + "`0007-use-bob-s-queue.md`" + `).

## Structure

` + "```" + `markdown
# 5. Use PostgreSQL for storage

Date: Sunday, October 18, 2026

## Status

Status: Accepted on Sunday, October 18, 2026
Previous status: Proposed on Friday, October 16, 2026
Supersedes [0002-use-sqlite.md](0002-use-sqlite.md) on Sunday, October 18, 2026

## Context

## Decision

## Consequences
` + "```" + `

## Rules

1. The ` + "`## Status`" + ` heading and a line starting with ` + "`Status: `" + ` below it are
   required. Records without them are never rewritten.
2. The last ` + "`Status: `" + ` line under the heading is the current status. Only letters,
   digits, underscores, spaces, tabs and commas are read as part of it, so
   statuses and dates using any other character are rejected.
3. Changing the status puts the new line first and keeps the old one as
   ` + "`Previous status: `" + `. History is never removed.
4. A new link line goes directly below the current status line, or below the
   ` + "`Previous status: `" + ` line a supersede just wrote:
   ` + "`<Link type> [<file>](<file>) on <date>`" + `.
5. A record created with ` + "`Supersedes`" + ` marks its target ` + "`Superseded`" + ` and adds
   ` + "`Superseded by`" + ` there. Other link types only add the reciprocal line
   (` + "`Amends`" + ` becomes ` + "`Amended by`" + `).
6. Do not edit index numbers by hand; the next record always takes the highest
   index plus one.
`
