// Package cli implements the interactive photofeed client.
//
// The REPL mirrors the app's two states. Signed out it offers register and
// login; signed in it offers the feed commands: list, post, comment,
// comments, edit, delete, avatar, whoami, logout and deleteaccount.
//
// Posts are addressed by their position in the last printed feed, so "edit 2"
// edits the second post of the most recent "list" output.
package cli
