package builder

// TextDocument builds a document with one width×height page per entry of
// pages, each carrying its text in 14pt Helvetica near the top-left corner.
func TextDocument(width, height float64, pages ...string) ([]byte, error) {
	b := NewBuilder()
	for _, text := range pages {
		b.NewPage(width, height).
			DrawText(text, 36, height-48, TextOptions{FontSize: 14}).
			Finish()
	}
	return b.Build()
}
