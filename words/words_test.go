package words

import (
	"slices"
	"testing"

	"github.com/poiesic/refscan/core"
	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	t.Run("splits on non identifier characters", func(t *testing.T) {
		got := slices.Collect(Tokens("let get_Name = $el.x2;"))
		assert.Equal(t, []Token{
			{Text: "let", Start: 0, End: 3},
			{Text: "get_Name", Start: 4, End: 12},
			{Text: "$el", Start: 15, End: 18},
			{Text: "x2", Start: 19, End: 21},
		}, got)
	})

	t.Run("unicode letters are identifier characters", func(t *testing.T) {
		got := slices.Collect(Tokens("größe=1"))
		assert.Len(t, got, 2)
		assert.Equal(t, "größe", got[0].Text)
		assert.Equal(t, len("größe")+1, got[1].Start)
	})

	t.Run("trailing token is emitted", func(t *testing.T) {
		got := slices.Collect(Tokens("a.b"))
		assert.Equal(t, []string{"a", "b"}, []string{got[0].Text, got[1].Text})
	})

	t.Run("no tokens", func(t *testing.T) {
		assert.Empty(t, slices.Collect(Tokens("  += ")))
	})

	t.Run("early stop", func(t *testing.T) {
		count := 0
		for range Tokens("a b c d") {
			count++
			if count == 2 {
				break
			}
		}
		assert.Equal(t, 2, count)
	})
}

func TestKeys(t *testing.T) {
	t.Run("single identifier", func(t *testing.T) {
		keys, indexed := Keys("getName", true)
		assert.True(t, indexed)
		assert.Equal(t, []core.WordKey{{Word: "getName", CaseSensitive: true}}, keys)
	})

	t.Run("longest first", func(t *testing.T) {
		keys, indexed := Keys("a.bcd.ef", true)
		assert.True(t, indexed)
		assert.Equal(t, []string{"bcd", "ef", "a"}, wordsOf(keys))
	})

	t.Run("ties keep query order", func(t *testing.T) {
		keys, _ := Keys("ab.cd", true)
		assert.Equal(t, []string{"ab", "cd"}, wordsOf(keys))
	})

	t.Run("case insensitive folds and dedupes", func(t *testing.T) {
		keys, indexed := Keys("Foo.foo.FOO", false)
		assert.True(t, indexed)
		assert.Equal(t, []core.WordKey{{Word: "foo"}}, keys)
	})

	t.Run("falls back to trimmed whole string", func(t *testing.T) {
		keys, indexed := Keys("  += ", true)
		assert.False(t, indexed)
		assert.Equal(t, []core.WordKey{{Word: "+=", CaseSensitive: true}}, keys)
	})

	t.Run("empty after trim yields nothing", func(t *testing.T) {
		keys, indexed := Keys("   ", false)
		assert.False(t, indexed)
		assert.Empty(t, keys)
	})
}

func TestSignature(t *testing.T) {
	a, _ := Keys("foo.bar", true)
	b, _ := Keys("bar.foo", true)
	c, _ := Keys("bar.foo", false)
	assert.Equal(t, Signature(a), Signature(b))
	assert.NotEqual(t, Signature(a), Signature(c))
}

func TestUnion(t *testing.T) {
	a, _ := Keys("getName", true)
	b, _ := Keys("Foo.getName", true)
	assert.Equal(t, []string{"getName", "Foo"}, wordsOf(Union(a, b)))
}

func wordsOf(keys []core.WordKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Word
	}
	return out
}

func TestNormalizeFoldsOrbits(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"ΟΔΟΣ", "οδος"},
		{"οδοσ", "οδος"},
		{"ſtate", "STATE"},
		{"Kelvin", "kelvin"},
		{"GetName", "getname"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			assert.Equal(t, Normalize(tt.a, false), Normalize(tt.b, false))
		})
	}

	assert.Equal(t, "getname", Normalize("GetName", false))
	assert.Equal(t, "GetName", Normalize("GetName", true))
}
