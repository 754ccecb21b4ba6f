package seq

import (
	"errors"
	"strings"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cases := []struct {
		in           string
		texts        []string
		finalNewline bool
	}{
		{"", nil, true},
		{"\n", []string{""}, true},
		{"a", []string{"a"}, false},
		{"a\n", []string{"a"}, true},
		{"a\nb", []string{"a", "b"}, false},
		{"a\n\nb\n", []string{"a", "", "b"}, true},
		{"a\r\nb\r\n", []string{"a\r", "b\r"}, true},
	}
	for _, c := range cases {
		s := New(c.in, Options{})
		if diff := cmp.Diff(c.texts, s.Texts(0, s.Len()), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%q: unexpected lines (-want +got):\n%s", c.in, diff)
		}
		assert.Equal(t, c.finalNewline, s.FinalNewline(), "%q", c.in)
	}
}

func TestStringReconstructsInput(t *testing.T) {
	f := func(text string) bool {
		return New(text, Options{IgnoreWhitespace: true}).String() == text
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestKeys(t *testing.T) {
	t.Run("carriage returns are ignored", func(t *testing.T) {
		a := New("x\r\ny\r\n", Options{})
		b := New("x\ny\n", Options{})
		require.Equal(t, a.Len(), b.Len())
		for i := 0; i < a.Len(); i++ {
			assert.Equal(t, a.Key(i), b.Key(i))
			assert.NotEqual(t, a.Text(i), b.Text(i))
		}
	})
	t.Run("white space is collapsed when ignored", func(t *testing.T) {
		s := New("  foo \t bar  \nfoo bar\n", Options{IgnoreWhitespace: true})
		assert.Equal(t, s.Key(0), s.Key(1))
		assert.Equal(t, "  foo \t bar  ", s.Text(0))
	})
	t.Run("white space matters by default", func(t *testing.T) {
		s := New("foo  bar\nfoo bar\n", Options{})
		assert.NotEqual(t, s.Key(0), s.Key(1))
	})
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a \tb\n c "))
	assert.Equal(t, "abc", StripSpace(" a\tb c "))
	indent, rest := LeadingSpace("\t  x = 1 ")
	assert.Equal(t, "\t  ", indent)
	assert.Equal(t, "x = 1 ", rest)
	assert.True(t, IsBlank(" \t"))
	assert.False(t, IsBlank(" x"))
}

func TestDecode(t *testing.T) {
	t.Run("utf-8", func(t *testing.T) {
		text, charset, err := Decode([]byte("héllo\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "héllo\n", text)
		assert.Equal(t, "utf-8", charset)
	})
	t.Run("utf-8 byte order mark is stripped", func(t *testing.T) {
		text, _, err := Decode([]byte("\xef\xbb\xbfhi\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "hi\n", text)
	})
	t.Run("utf-16 with byte order mark", func(t *testing.T) {
		text, charset, err := Decode([]byte{0xff, 0xfe, 'h', 0, 'i', 0}, nil)
		require.NoError(t, err)
		assert.Equal(t, "hi", text)
		assert.Equal(t, "utf-16", charset)
	})
	t.Run("declared encoding", func(t *testing.T) {
		text, charset, err := Decode([]byte("caf\xe9\n"), []string{"iso-8859-1"})
		require.NoError(t, err)
		assert.Equal(t, "café\n", text)
		assert.Equal(t, "iso-8859-1", charset)
	})
	t.Run("declared utf-8 falls through when invalid", func(t *testing.T) {
		text, _, err := Decode([]byte("caf\xe9\n"), []string{"utf-8", "windows-1252"})
		require.NoError(t, err)
		assert.Equal(t, "café\n", text)
	})
	t.Run("binary content", func(t *testing.T) {
		_, _, err := Decode([]byte("a\x00\xff\xfeb"), nil)
		if !errors.Is(err, ErrEncodingDetectionFailed) {
			t.Errorf("got %v, want %v", err, ErrEncodingDetectionFailed)
		}
	})
	t.Run("unknown declared encoding is skipped", func(t *testing.T) {
		text, _, err := Decode([]byte("plain\n"), []string{"no-such-charset"})
		require.NoError(t, err)
		assert.Equal(t, "plain\n", text)
	})
	t.Run("empty content", func(t *testing.T) {
		text, _, err := Decode(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, text)
	})
}

func TestFromLines(t *testing.T) {
	lines := []string{"a", " b", ""}
	s := FromLines(lines, Options{})
	assert.Equal(t, lines, s.Texts(0, s.Len()))
	assert.Equal(t, strings.Join(lines, "\n")+"\n", s.String())
}
