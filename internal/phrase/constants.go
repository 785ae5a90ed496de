// Package phrase builds passphrases and tokens from hardware random draws.
package phrase

// Generation limits and defaults.
const (
	// Number of words in a passphrase when the caller does not choose.
	DefaultWords = 6
	// Upper bound on words per passphrase.
	MaxWords = 64

	// Token length when the caller does not choose.
	DefaultTokenLength = 32
	// Upper bound on token length.
	MaxTokenLength = 1024

	// Minimum and maximum length of generated words when no wordlist is loaded.
	WordLengthMin = 3
	WordLengthMax = 10

	DefaultSeparator = "-"

	// DefaultCharset is used for tokens and generated words.
	DefaultCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)
