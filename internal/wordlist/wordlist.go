package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nao1215/pausescan/internal/model"
)

// ErrWordlistNotFound is returned when the word-list file cannot be opened.
// It is fatal for the whole run: nothing is probed.
var ErrWordlistNotFound = errors.New("word list not found")

// maxLineSize bounds a single word-list line. bufio.Scanner's 64KB default
// is too small for some generated lists.
const maxLineSize = 1024 * 1024

// Load reads all lines of the word list at path.
// Lines are returned unmodified; trimming happens in Generate.
func Load(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided word list path is intentional
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWordlistNotFound, path, err)
	}
	defer f.Close()

	lines, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list %s: %w", path, err)
	}
	return lines, nil
}

// Read reads all lines from r.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lines := make([]string, 0)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Generate builds the candidates for mode from base and words.
//
// In path modes a word w becomes base + "/" + w, or base + w when base
// already ends in a slash. In vhost mode every candidate requests base with
// Host set to the word, and carries exclude.
func Generate(base string, words []string, mode model.Mode, exclude model.LengthFilter) []model.Candidate {
	candidates := make([]model.Candidate, 0, len(words))

	for _, raw := range words {
		word := strings.TrimSpace(raw)
		if word == "" {
			continue
		}

		if mode.UsesHostHeader() {
			candidates = append(candidates, model.Candidate{
				URL:           base,
				Host:          word,
				ExcludeLength: exclude,
			})
			continue
		}

		candidates = append(candidates, model.Candidate{
			URL: JoinPath(base, word),
		})
	}

	return candidates
}

// JoinPath appends word to base with exactly the separator the base lacks.
func JoinPath(base, word string) string {
	if strings.HasSuffix(base, "/") {
		return base + word
	}
	return base + "/" + word
}
