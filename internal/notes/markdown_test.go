package notes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractText_PlainParagraph(t *testing.T) {
	require.Equal(t, "Pain started after lifting boxes, sharp 7/10",
		ExtractText("Pain started after lifting boxes, sharp 7/10"))
}

func TestExtractText_StripsMarkdownStructure(t *testing.T) {
	md := "## Assessment\n\nClient shows **marked improvement** in mood.\n\n- sleep normalized\n- appetite stable"
	out := ExtractText(md)
	require.NotContains(t, out, "##")
	require.NotContains(t, out, "**")
	require.Contains(t, out, "marked improvement")
	require.Contains(t, out, "sleep normalized")
}

func TestExtractText_JoinsSoftWrappedLines(t *testing.T) {
	out := ExtractText("first line\nsecond line")
	require.Contains(t, out, "first line second line")
}

func TestExtractText_Empty(t *testing.T) {
	require.Equal(t, "", ExtractText("   \n  "))
}
