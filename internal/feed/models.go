// Package feed composes the photo feed: posts with image and caption,
// per-post comment threads, and profile avatars, all materialized from the
// remote document store.
package feed

// Author is embedded by value in every post and comment. The denormalization
// is deliberate: rendering never requires a join, at the cost of historical
// posts and comments keeping a stale username after a profile rename.
type Author struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// Post payload. Created only by the upload controller's commit hook, so the
// image URL always references an uploaded blob. Caption mutations and
// deletion are owner-gated.
type Post struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
	Author  Author `json:"author"`
}

// Comment payload, child of exactly one post. Comments are never updated and
// never deleted; no such path exists.
type Comment struct {
	Text   string `json:"text"`
	Author Author `json:"author"`
}

// Profile holds the per-identity avatar, stored separately from posts and
// comments so avatar freshness is decoupled from their payloads.
type Profile struct {
	UID      string `json:"uid"`
	PhotoURL string `json:"photoURL"`
}

// PostsCollection is the feed's root collection.
const PostsCollection = "posts"

// CommentsCollection returns the comment subcollection of a post.
func CommentsCollection(postID string) string {
	return PostsCollection + "/" + postID + "/comments"
}

// PostPath returns the document path of a post.
func PostPath(postID string) string {
	return PostsCollection + "/" + postID
}

// ProfilePath returns the profile document path of an identity.
func ProfilePath(uid string) string {
	return "users/" + uid
}
