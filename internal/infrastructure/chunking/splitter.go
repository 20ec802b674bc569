package chunking

import "strings"

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter recursively splits text on coarse separators first (paragraphs,
// then lines, then words), merging pieces back into windows of at most
// ChunkSize runes with Overlap runes carried between adjacent windows.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, defaultSeparators)
}

func (s *Splitter) split(text string, separators []string) []string {
	if len([]rune(text)) <= s.ChunkSize {
		return []string{text}
	}

	separator := separators[len(separators)-1]
	rest := separators
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return s.windows(text)
	}

	pieces := strings.Split(text, separator)
	out := make([]string, 0, len(pieces))
	var pending []string
	pendingLen := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(pending, separator))
		if chunk != "" {
			out = append(out, chunk)
		}
		// Carry a tail of pieces as overlap into the next window.
		retained := make([]string, 0, len(pending))
		retainedLen := 0
		for i := len(pending) - 1; i >= 0; i-- {
			pieceLen := len([]rune(pending[i])) + len(separator)
			if retainedLen+pieceLen > s.Overlap {
				break
			}
			retained = append([]string{pending[i]}, retained...)
			retainedLen += pieceLen
		}
		pending = retained
		pendingLen = retainedLen
	}

	for _, piece := range pieces {
		pieceLen := len([]rune(piece)) + len(separator)
		if pieceLen > s.ChunkSize {
			flush()
			pending = nil
			pendingLen = 0
			out = append(out, s.split(piece, rest)...)
			continue
		}
		if pendingLen+pieceLen > s.ChunkSize {
			flush()
		}
		pending = append(pending, piece)
		pendingLen += pieceLen
	}
	if len(pending) > 0 {
		chunk := strings.TrimSpace(strings.Join(pending, separator))
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// windows is the character-level fallback when no separator fits.
func (s *Splitter) windows(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
