package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTextContent(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		m := NewUserMessage("hello")
		assert.Equal(t, "hello", m.TextContent())
	})

	t.Run("multipart concatenates text parts", func(t *testing.T) {
		m := NewUserMultipart(
			TextPart("what is "),
			ImagePart("aGVsbG8=", "image/png"),
			TextPart("this?"),
		)
		assert.Equal(t, "what is this?", m.TextContent())
	})

	t.Run("parts win over content", func(t *testing.T) {
		m := Message{Role: RoleUser, Content: "ignored", Parts: []Part{TextPart("used")}}
		assert.Equal(t, "used", m.TextContent())
	})
}

func TestHasImages(t *testing.T) {
	withImage := NewUserMultipart(TextPart("look"), ImagePart("aGVsbG8=", "image/jpeg"))
	textOnly := NewUserMessage("no images here")

	assert.True(t, withImage.HasImages())
	assert.False(t, textOnly.HasImages())
	assert.True(t, HasImages([]Message{textOnly, withImage}))
	assert.False(t, HasImages([]Message{textOnly}))
}

func TestNormalizeMessages(t *testing.T) {
	t.Run("empty content becomes single space", func(t *testing.T) {
		out := NormalizeMessages([]Message{NewUserMessage("")}, NormalizeOptions{})
		require.Len(t, out, 1)
		assert.Equal(t, " ", out[0].Content)
	})

	t.Run("whitespace only content becomes single space", func(t *testing.T) {
		out := NormalizeMessages([]Message{NewUserMessage("   \n\t")}, NormalizeOptions{})
		require.Len(t, out, 1)
		assert.Equal(t, " ", out[0].Content)
	})

	t.Run("drop images strips image parts", func(t *testing.T) {
		msgs := []Message{NewUserMultipart(TextPart("describe"), ImagePart("aGVsbG8=", "image/png"))}
		out := NormalizeMessages(msgs, NormalizeOptions{DropImages: true})
		require.Len(t, out, 1)
		require.Len(t, out[0].Parts, 1)
		assert.Equal(t, PartText, out[0].Parts[0].Type)
	})

	t.Run("multipart degenerating to empty becomes space", func(t *testing.T) {
		msgs := []Message{NewUserMultipart(ImagePart("aGVsbG8=", "image/png"))}
		out := NormalizeMessages(msgs, NormalizeOptions{DropImages: true})
		require.Len(t, out, 1)
		assert.False(t, out[0].IsMultipart())
		assert.Equal(t, " ", out[0].Content)
	})

	t.Run("drop assistant turns", func(t *testing.T) {
		msgs := []Message{
			NewUserMessage("q1"),
			NewAssistantMessage("a1"),
			NewUserMessage("q2"),
		}
		out := NormalizeMessages(msgs, NormalizeOptions{DropAssistantTurns: true})
		require.Len(t, out, 2)
		assert.Equal(t, RoleUser, out[0].Role)
		assert.Equal(t, RoleUser, out[1].Role)
	})

	t.Run("no options keeps everything", func(t *testing.T) {
		msgs := []Message{
			NewSystemMessage("sys"),
			NewUserMessage("q"),
			NewAssistantMessage("a"),
			NewUserMultipart(TextPart("t"), ImagePart("aGVsbG8=", "image/png")),
		}
		out := NormalizeMessages(msgs, NormalizeOptions{})
		require.Len(t, out, 4)
		assert.True(t, out[3].HasImages())
	})

	t.Run("input is not mutated", func(t *testing.T) {
		msgs := []Message{NewUserMessage("")}
		_ = NormalizeMessages(msgs, NormalizeOptions{})
		assert.Equal(t, "", msgs[0].Content)
	})
}

func TestSpliceContextBlocks(t *testing.T) {
	t.Run("appends to existing system message", func(t *testing.T) {
		msgs := []Message{NewSystemMessage("base"), NewUserMessage("q")}
		out := SpliceContextBlocks(msgs, []string{"block one", "block two"})
		require.Len(t, out, 2)
		assert.Equal(t, "base\n\nblock one\n\nblock two", out[0].Content)
	})

	t.Run("prepends new system message when absent", func(t *testing.T) {
		msgs := []Message{NewUserMessage("q")}
		out := SpliceContextBlocks(msgs, []string{"ctx"})
		require.Len(t, out, 2)
		assert.Equal(t, RoleSystem, out[0].Role)
		assert.Equal(t, "ctx", out[0].Content)
	})

	t.Run("no blocks is a no-op", func(t *testing.T) {
		msgs := []Message{NewUserMessage("q")}
		out := SpliceContextBlocks(msgs, nil)
		assert.Equal(t, msgs, out)
	})
}
