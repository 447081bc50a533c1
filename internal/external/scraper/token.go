package scraper

import "math/rand/v2"

const (
	decoyTokenLength   = 180
	decoyTokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// decoyToken генерирует случайную строку для заголовка X-Requested-By
func decoyToken() string {
	b := make([]byte, decoyTokenLength)
	for i := range b {
		b[i] = decoyTokenAlphabet[rand.IntN(len(decoyTokenAlphabet))]
	}
	return string(b)
}
