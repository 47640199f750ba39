package blob

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressReader_MonotonicAndComplete(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	var seen []int
	pr := NewProgressReader(bytes.NewReader(data), int64(len(data)), func(p int) {
		seen = append(seen, p)
	})

	buf := make([]byte, 64)
	for {
		if _, err := pr.Read(buf); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("read: %v", err)
		}
	}

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.Greater(t, seen[i], seen[i-1])
	}
	require.Equal(t, 100, seen[len(seen)-1])
	for _, p := range seen {
		require.GreaterOrEqual(t, p, 0)
		require.LessOrEqual(t, p, 100)
	}
}

func TestProgressReader_ClampsWhenTotalTooSmall(t *testing.T) {
	var last int
	pr := NewProgressReader(strings.NewReader("abcdefgh"), 4, func(p int) { last = p })

	if _, err := io.Copy(io.Discard, pr); err != nil {
		t.Fatalf("copy: %v", err)
	}
	require.Equal(t, 100, last)
}

func TestProgressReader_NilCallbackAndUnknownTotal(t *testing.T) {
	pr := NewProgressReader(strings.NewReader("abc"), 0, nil)
	_, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
}
