// Пакет blobstore — хранилище блобов «ключ → байты» для аудиофайлов.
// Ключ — UUID аудиозаписи; содержимое непрозрачно для хранилища.
package blobstore

import (
	"context"
	"io"
)

// PutResult — результат записи блоба.
type PutResult struct {
	// Locator — расположение блоба (для дисковой реализации — путь файла)
	Locator string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — base64 SHA-256 содержимого, вычисленный при записи.
	// Пустая строка означает, что хранилище хэш не посчитало
	// и вызывающий код должен вычислить его сам.
	Checksum string
}

// BlobStore — внешнее хранилище байтов аудиофайлов.
// Все реализации обязаны быть безопасны для конкурентного использования.
type BlobStore interface {
	// Put записывает содержимое reader под ключом key.
	// Семантика перезаписи: повторный Put с тем же ключом заменяет
	// содержимое, а не создаёт дубликат (повтор после сбоя безопасен).
	Put(ctx context.Context, key string, reader io.Reader) (*PutResult, error)
	// Open открывает блоб для чтения. Вызывающий код обязан закрыть ReadCloser.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет блоб. Отсутствие блоба не является ошибкой.
	Delete(ctx context.Context, key string) error
}
