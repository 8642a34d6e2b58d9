package service

import (
	"fmt"
	"strings"
)

// BuildTitle составляет отображаемое название записи из полей книги и главы.
//
// Формат: "<книга> [<серия>] | <номер> <глава>".
// Серия и глава добавляются только если не пусты после trim.
// Номер главы без названия главы не добавляется вовсе.
//
// Чистая функция без побочных эффектов.
func BuildTitle(bookName, bookSeries, chapterTitle string, chapterNumber *int) string {
	var b strings.Builder
	b.WriteString(bookName)

	if s := strings.TrimSpace(bookSeries); s != "" {
		fmt.Fprintf(&b, " [%s]", s)
	}

	if t := strings.TrimSpace(chapterTitle); t != "" {
		if chapterNumber != nil {
			fmt.Fprintf(&b, " | %d %s", *chapterNumber, t)
		} else {
			fmt.Fprintf(&b, " | %s", t)
		}
	}

	return b.String()
}
