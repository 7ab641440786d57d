package chunker

// Chunk is a contiguous slice of the source text. Start and End are rune
// offsets into the source; Index is the chunk's 0-based position.
type Chunk struct {
	Text  string
	Index int
	Start int
	End   int
}

// Split breaks text into ordered windows of size runes. When overlap > 0 and
// more text remains after a window, the next window starts overlap runes
// before the current end, so adjacent chunks share that much text. The final
// window may be shorter. Chunking by runes keeps multi-byte input intact.
//
// Callers are expected to reject overlap >= size at configuration time; the
// progress guard here is only a backstop against an infinite loop.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 || len(text) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	total := len(runes)

	var chunks []Chunk
	start := 0
	for start < total {
		end := start + size
		if end > total {
			end = total
		}

		chunks = append(chunks, Chunk{
			Text:  string(runes[start:end]),
			Index: len(chunks),
			Start: start,
			End:   end,
		})

		next := end
		if end < total && overlap > 0 {
			next = end - overlap
		}
		if next <= start {
			break
		}
		start = next
	}

	return chunks
}
