package rabota

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSign(t *testing.T) {
	t.Parallel()

	t.Run("matches canonical form", func(t *testing.T) {
		t.Parallel()
		p := NewParams("token", "abc", "app_id", "42")
		require.Equal(t, sha256Hex(`{"token":"abc","app_id":"42"}secret`), Sign(p, "secret"))
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		p := NewParams("a", "1", "b", "2")
		require.Equal(t, Sign(p, "s"), Sign(p.Clone(), "s"))
	})

	t.Run("changes with value", func(t *testing.T) {
		t.Parallel()
		require.NotEqual(t,
			Sign(NewParams("a", "1"), "s"),
			Sign(NewParams("a", "2"), "s"),
		)
	})

	t.Run("changes with secret", func(t *testing.T) {
		t.Parallel()
		p := NewParams("a", "1")
		require.NotEqual(t, Sign(p, "s1"), Sign(p, "s2"))
	})

	t.Run("depends on insertion order", func(t *testing.T) {
		t.Parallel()
		require.NotEqual(t,
			Sign(NewParams("a", "1", "b", "2"), "s"),
			Sign(NewParams("b", "2", "a", "1"), "s"),
		)
	})

	t.Run("empty params", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, sha256Hex("{}s"), Sign(Params{}, "s"))
	})
}

func TestAppendPHPString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "abc", want: `"abc"`},
		{name: "slash", in: "https://x/cb", want: `"https:\/\/x\/cb"`},
		{name: "quote and backslash", in: `a"b\c`, want: `"a\"b\\c"`},
		{name: "control", in: "a\nb\tc\x01", want: `"a\nb\tc\u0001"`},
		{name: "html not escaped", in: "<a&b>", want: `"<a&b>"`},
		{name: "cyrillic", in: "Москва", want: `"\u041c\u043e\u0441\u043a\u0432\u0430"`},
		{name: "astral plane", in: "😀", want: `"\ud83d\ude00"`},
		{name: "invalid utf8", in: "a\xffb", want: `"a\ufffdb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, string(appendPHPString(nil, tt.in)))
		})
	}
}
