package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// id.go - генерация идентификаторов ордеров и сделок
//
// Формат: PREFIX_8f14e45fceea167a (префикс + 16 hex символов).
// Криптографически случайный суффикс: коллизии исключены на
// практике, внешний sequencer не нужен.

// NewID возвращает новый уникальный идентификатор с префиксом
func NewID(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand на поддерживаемых платформах не отказывает;
		// паника здесь лучше тихого дубликата ID
		panic("utils: crypto/rand unavailable: " + err.Error())
	}

	var b strings.Builder
	b.Grow(len(prefix) + 1 + hex.EncodedLen(len(buf)))
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(hex.EncodeToString(buf))
	return b.String()
}
