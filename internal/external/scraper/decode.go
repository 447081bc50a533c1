package scraper

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// decodeBody распаковывает тело ответа согласно Content-Encoding.
// Неизвестная кодировка или ошибка распаковки возвращают тело как есть.
func decodeBody(encoding string, body []byte) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer r.Close()
		return readAllOr(r, body)
	case "deflate":
		// deflate по RFC упакован в zlib, но часть серверов отдает голый поток
		if r, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer r.Close()
			if out, err := io.ReadAll(r); err == nil {
				return out
			}
		}
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		return readAllOr(r, body)
	default:
		return body
	}
}

func readAllOr(r io.Reader, fallback []byte) []byte {
	out, err := io.ReadAll(r)
	if err != nil {
		return fallback
	}
	return out
}
