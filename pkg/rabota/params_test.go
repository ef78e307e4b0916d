package rabota

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	t.Parallel()

	t.Run("keeps insertion order", func(t *testing.T) {
		t.Parallel()
		p := NewParams("z", "1", "a", "2")
		p.Set("m", "3")
		require.Equal(t, []string{"z", "a", "m"}, p.Keys())
	})

	t.Run("set existing key keeps position", func(t *testing.T) {
		t.Parallel()
		p := NewParams("a", "1", "b", "2")
		p.Set("a", "9")
		require.Equal(t, []string{"a", "b"}, p.Keys())
		v, ok := p.Get("a")
		require.True(t, ok)
		require.Equal(t, "9", v)
	})

	t.Run("del", func(t *testing.T) {
		t.Parallel()
		p := NewParams("a", "1", "b", "2", "c", "3")
		p.Del("b")
		p.Del("missing")
		require.Equal(t, []string{"a", "c"}, p.Keys())
		require.False(t, p.Has("b"))
		require.Equal(t, 2, p.Len())
	})

	t.Run("clone is independent", func(t *testing.T) {
		t.Parallel()
		p := NewParams("a", "1")
		c := p.Clone()
		c.Set("b", "2")
		c.Set("a", "x")
		require.Equal(t, 1, p.Len())
		v, _ := p.Get("a")
		require.Equal(t, "1", v)
	})

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()
		var p Params
		require.Equal(t, 0, p.Len())
		require.False(t, p.Has("a"))
		p.Set("a", "1")
		require.Equal(t, "a=1", p.Encode())
	})

	t.Run("odd pair count ignores trailing key", func(t *testing.T) {
		t.Parallel()
		p := NewParams("a", "1", "b")
		require.Equal(t, []string{"a"}, p.Keys())
	})

	t.Run("marshal json", func(t *testing.T) {
		t.Parallel()
		b, err := json.Marshal(NewParams("b", "x/y", "a", "1"))
		require.NoError(t, err)
		require.Equal(t, `{"b":"x\/y","a":"1"}`, string(b))
	})
}

func TestParseQuery(t *testing.T) {
	t.Parallel()

	p, err := parseQuery("b=2&a=hello+world&b=3&&c=%2F")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a", "c"}, p.Keys())

	b, _ := p.Get("b")
	require.Equal(t, "2", b)
	a, _ := p.Get("a")
	require.Equal(t, "hello world", a)
	c, _ := p.Get("c")
	require.Equal(t, "/", c)

	_, err = parseQuery("a=%zz")
	require.Error(t, err)
}

func TestParams_Encode(t *testing.T) {
	t.Parallel()

	t.Run("keeps insertion order", func(t *testing.T) {
		t.Parallel()
		p := NewParams("time", "1700000000", "token", "T1", "app_id", "42", "signature", "abc")
		require.Equal(t, "time=1700000000&token=T1&app_id=42&signature=abc", p.Encode())
	})

	t.Run("escapes keys and values", func(t *testing.T) {
		t.Parallel()
		p := NewParams("redirect_uri", "https://x/cb?a=1", "q", "go dev", "k&y", "v=w")
		require.Equal(t, "redirect_uri=https%3A%2F%2Fx%2Fcb%3Fa%3D1&q=go+dev&k%26y=v%3Dw", p.Encode())

		back, err := parseQuery(p.Encode())
		require.NoError(t, err)
		require.Equal(t, p.Keys(), back.Keys())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, Params{}.Encode())
	})
}

func TestSplitPathQuery(t *testing.T) {
	t.Parallel()

	t.Run("no query", func(t *testing.T) {
		t.Parallel()
		path, q := splitPathQuery("/v4/me.json")
		require.Equal(t, "/v4/me.json", path)
		require.Equal(t, 0, q.Len())
	})

	t.Run("ordered query", func(t *testing.T) {
		t.Parallel()
		path, q := splitPathQuery("/v4/vacancies.json?page=2&a=path")
		require.Equal(t, "/v4/vacancies.json", path)
		require.Equal(t, []string{"page", "a"}, q.Keys())
	})

	t.Run("malformed query stays in path", func(t *testing.T) {
		t.Parallel()
		path, q := splitPathQuery("/v4/me.json?a=%zz")
		require.Equal(t, "/v4/me.json?a=%zz", path)
		require.Equal(t, 0, q.Len())
	})
}

func TestMergeParams(t *testing.T) {
	t.Parallel()

	first := NewParams("page", "2", "a", "path")
	second := NewParams("a", "caller", "q", "go")

	merged := mergeParams(first, second)
	require.Equal(t, []string{"page", "a", "q"}, merged.Keys())
	a, _ := merged.Get("a")
	require.Equal(t, "path", a)

	merged.Set("z", "1")
	require.Equal(t, 2, first.Len(), "inputs are not modified")
	require.Equal(t, 2, second.Len())
}
