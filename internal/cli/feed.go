package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/photofeed/internal/feed"
	"github.com/dmitrijs2005/photofeed/internal/upload"
)

// List prints the feed, newest first, and remembers the ordering so the
// numbered commands can address posts.
func (a *App) List(ctx context.Context) error {
	if err := a.session.FeedErr(); err != nil {
		return fmt.Errorf("feed subscription lost: %w", err)
	}

	recs := a.session.Feed()
	a.lastFeed = recs

	if len(recs) == 0 {
		fmt.Println("The feed is empty.")
		return nil
	}
	for i, rec := range recs {
		fmt.Printf("%d. %s — %s\n   %s\n   posted %s\n",
			i+1, rec.Item.Author.Username, rec.Item.Caption, rec.Item.Image,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// Post prompts for a caption and an image file and publishes them. The image
// URL is resolved before the post record is written, so the feed never shows
// a post without its image.
func (a *App) Post(ctx context.Context) error {
	ident := a.session.Identity()
	if ident == nil {
		return fmt.Errorf("not signed in")
	}

	caption, err := getSimpleText(a.reader, "Enter caption", os.Stdout)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Enter image file path", os.Stdout)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	ctrl := a.svc.NewPostUpload(*ident, caption, printProgress)
	if err := ctrl.Select(upload.File{Name: info.Name(), Size: info.Size(), Content: file}); err != nil {
		return err
	}
	if err := ctrl.Submit(ctx); err != nil {
		return err
	}

	fmt.Println("Posted!")
	return nil
}

// Comment adds a comment to post N of the last listing.
func (a *App) Comment(ctx context.Context, n int) error {
	ident := a.session.Identity()
	if ident == nil {
		return fmt.Errorf("not signed in")
	}

	rec, err := a.post(n)
	if err != nil {
		return err
	}

	text, err := getSimpleText(a.reader, "Enter comment", os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.svc.AddComment(ctx, *ident, rec.ID, text); err != nil {
		return err
	}
	fmt.Println("Comment added.")
	return nil
}

// ShowComments prints the comment thread of post N, oldest first.
func (a *App) ShowComments(ctx context.Context, n int) error {
	rec, err := a.post(n)
	if err != nil {
		return err
	}

	v, err := a.session.OpenComments(ctx, rec.ID)
	if err != nil {
		return err
	}

	comments := v.Records()
	if len(comments) == 0 {
		fmt.Println("No comments yet.")
		return nil
	}
	for _, c := range comments {
		fmt.Printf("%s: %s\n", c.Item.Author.Username, c.Item.Text)
	}
	return nil
}

// Edit changes the caption of post N. Only the author may edit.
func (a *App) Edit(ctx context.Context, n int) error {
	ident := a.session.Identity()
	if ident == nil {
		return fmt.Errorf("not signed in")
	}

	rec, err := a.post(n)
	if err != nil {
		return err
	}

	caption, err := getSimpleText(a.reader, "Enter new caption", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.svc.EditCaption(ctx, *ident, rec, caption); err != nil {
		if errors.Is(err, feed.ErrNotOwner) {
			return fmt.Errorf("only %s can edit this post", rec.Item.Author.Username)
		}
		return err
	}
	fmt.Println("Caption updated.")
	return nil
}

// Delete removes post N and its image. Only the author may delete.
func (a *App) Delete(ctx context.Context, n int) error {
	ident := a.session.Identity()
	if ident == nil {
		return fmt.Errorf("not signed in")
	}

	rec, err := a.post(n)
	if err != nil {
		return err
	}

	if err := a.svc.DeletePost(ctx, *ident, rec); err != nil {
		if errors.Is(err, feed.ErrNotOwner) {
			return fmt.Errorf("only %s can delete this post", rec.Item.Author.Username)
		}
		return err
	}
	fmt.Println("Post deleted.")
	return nil
}

// Avatar uploads a new profile picture.
func (a *App) Avatar(ctx context.Context) error {
	ident := a.session.Identity()
	if ident == nil {
		return fmt.Errorf("not signed in")
	}

	path, err := getSimpleText(a.reader, "Enter image file path", os.Stdout)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	ctrl := a.svc.NewAvatarUpload(*ident, printProgress)
	if err := ctrl.Select(upload.File{Name: info.Name(), Size: info.Size(), Content: file}); err != nil {
		return err
	}
	if err := ctrl.Submit(ctx); err != nil {
		return err
	}

	fmt.Println("Avatar updated.")
	return nil
}

func printProgress(percent int) {
	fmt.Printf("\ruploading... %d%%", percent)
	if percent == 100 {
		fmt.Println()
	}
}
