package phrase

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rampantspark/gohwrng/internal/random"
)

// Generator picks words and characters using a random.Source.
type Generator struct {
	words  []string       // Wordlist entries (may be empty)
	random *random.Source // Hardware-backed source
}

// NewGenerator creates a new phrase generator.
//
// Parameters:
//   - words: wordlist entries (can be nil/empty to use generated words)
//   - random: hardware-backed random source
//
// Returns a new Generator instance.
func NewGenerator(words []string, random *random.Source) *Generator {
	return &Generator{
		words:  words,
		random: random,
	}
}

// RandomWord returns one wordlist entry, or a generated word of
// WordLengthMin to WordLengthMax characters when no wordlist is loaded.
func (g *Generator) RandomWord() (string, error) {
	if len(g.words) > 0 {
		idx, err := g.random.Intn(len(g.words))
		if err != nil {
			return "", err
		}
		return g.words[idx], nil
	}
	length, err := g.random.RandomInt(WordLengthMin, WordLengthMax)
	if err != nil {
		return "", err
	}
	return g.random.RandString(length)
}

// Passphrase joins count random words with sep.
//
// Parameters:
//   - count: number of words, between 1 and MaxWords
//   - sep: separator placed between words
//
// Returns the passphrase, or an error if count is out of range or the
// hardware source is unavailable.
func (g *Generator) Passphrase(count int, sep string) (string, error) {
	if count < 1 || count > MaxWords {
		return "", fmt.Errorf("invalid word count: %d (must be between 1 and %d)", count, MaxWords)
	}
	words := make([]string, count)
	for i := range words {
		w, err := g.RandomWord()
		if err != nil {
			return "", err
		}
		words[i] = w
	}
	return strings.Join(words, sep), nil
}

// Token returns a random string of length characters from the source's
// character set.
func (g *Generator) Token(length int) (string, error) {
	if length < 1 || length > MaxTokenLength {
		return "", fmt.Errorf("invalid token length: %d (must be between 1 and %d)", length, MaxTokenLength)
	}
	return g.random.RandString(length)
}

// LoadWordlist loads entries from a file, one entry per line.
//
// Empty lines and lines containing only whitespace are ignored. Each
// non-empty line is trimmed before being added.
//
// Parameters:
//   - filename: the path to the wordlist file
//
// Returns an error if the file cannot be opened or read.
func LoadWordlist(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("can't read wordlist file: %w", err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading wordlist file: %w", err)
	}
	return words, nil
}
