package memblob

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photofeed/internal/remote"
)

func TestUploadResolveDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	var progress []int
	h := s.Upload(ctx, "images/u1/posts/p1", strings.NewReader("bytes"), 5, func(p int) {
		progress = append(progress, p)
	})
	<-h.Done()
	require.NoError(t, h.Err())
	require.NotEmpty(t, progress)
	require.Equal(t, 100, progress[len(progress)-1])

	url, err := s.ResolveURL(ctx, "images/u1/posts/p1")
	require.NoError(t, err)
	require.Equal(t, "mem://images/u1/posts/p1", url)

	data, ok := s.Get("images/u1/posts/p1")
	require.True(t, ok)
	require.Equal(t, "bytes", string(data))

	require.NoError(t, s.DeleteByURL(ctx, url))
	_, ok = s.Get("images/u1/posts/p1")
	require.False(t, ok)
}

func TestResolveURL_MissingObject(t *testing.T) {
	s := New()
	_, err := s.ResolveURL(context.Background(), "images/u1/posts/nope")
	require.True(t, errors.Is(err, remote.ErrNotFound))
}

func TestDeleteByURL_ForeignURLRejected(t *testing.T) {
	s := New()
	err := s.DeleteByURL(context.Background(), "https://elsewhere.example/x.jpg")
	require.Error(t, err)
}
