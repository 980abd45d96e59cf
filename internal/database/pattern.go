package database

import "strings"

// LikeEscape is the escape character EscapeLike writes.
const LikeEscape = `\`

var likeReplacer = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapeLike escapes the LIKE wildcards in name so it matches itself
// literally when used with LikeEscape.
func EscapeLike(name string) string {
	return likeReplacer.Replace(name)
}

// EscapeLikeWith is EscapeLike for an explicit escape character, for
// dialects whose patterns carry their own ESCAPE clause.
func EscapeLikeWith(name, esc string) string {
	return strings.NewReplacer(
		esc, esc+esc,
		`%`, esc+`%`,
		`_`, esc+`_`,
	).Replace(name)
}
