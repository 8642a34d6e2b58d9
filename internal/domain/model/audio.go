// Пакет model — доменные модели Podcasts Hosting.
package model

import (
	"strings"
	"time"
)

// Ограничения полей (совпадают со схемой таблицы audio_files).
const (
	// MaxTitleLen — максимальная длина составного заголовка.
	MaxTitleLen = 255
	// MaxExtensionLen — максимальная длина расширения файла (включая точку).
	MaxExtensionLen = 15
)

// AudioRecord — метаданные загруженной аудиоглавы.
// Единственная персистентная сущность сервиса. Запись неизменяема:
// единственный путь модификации — удаление и повторная загрузка.
type AudioRecord struct {
	// AudioID — UUID записи; одновременно ключ блоба и публичный
	// идентификатор для download/delete
	AudioID string `json:"audio_id"`
	// DisplayTitle — составной заголовок (книга, серия, глава)
	DisplayTitle string `json:"display_title"`
	// StorageLocator — расположение блоба в хранилище
	StorageLocator string `json:"storage_locator"`
	// ContentHash — base64 SHA-256 содержимого файла (справочное значение,
	// при скачивании не сверяется)
	ContentHash string `json:"content_hash"`
	// SizeBytes — размер файла в байтах
	SizeBytes int64 `json:"size_bytes"`
	// Extension — расширение оригинального файла с точкой (".mp3");
	// пустое, если имя файла не содержало расширения
	Extension string `json:"extension,omitempty"`
	// UploadedAt — момент загрузки (UTC), единственный ключ сортировки
	UploadedAt time.Time `json:"uploaded_at"`
	// UploadedBy — идентификатор загрузившего (sub из JWT);
	// nil, если учётная запись не задана или удалена
	UploadedBy *string `json:"uploaded_by,omitempty"`
}

// Таблица соответствия расширений и MIME-типов аудио.
// Используется и при скачивании, и в enclosure RSS-ленты —
// оба пути обязаны давать одинаковый результат.
var contentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".m4a": "audio/m4a",
	".m4b": "audio/m4b",
}

// defaultContentType — тип по умолчанию для неизвестного
// или отсутствующего расширения.
const defaultContentType = "audio/mpeg"

// ContentTypeForExtension возвращает MIME-тип для расширения файла
// (с точкой, регистр не учитывается). Неизвестное или пустое
// расширение — audio/mpeg, это не ошибка.
func ContentTypeForExtension(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return defaultContentType
}

// ContentType возвращает MIME-тип записи по её расширению.
func (r *AudioRecord) ContentType() string {
	return ContentTypeForExtension(r.Extension)
}

// DownloadFilename возвращает имя файла для Content-Disposition:
// UUID записи с её расширением (".mp3" для записей без расширения).
func (r *AudioRecord) DownloadFilename() string {
	ext := r.Extension
	if ext == "" {
		ext = ".mp3"
	}
	return r.AudioID + ext
}
