// filestore.go — дисковая реализация BlobStore.
// Streaming-запись с подсчётом SHA-256 на лету,
// паттерн: temp файл → запись + hash → fsync → atomic rename.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore — хранение блобов файлами на диске, имя файла — ключ.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (PH_DATA_DIR)
	dataDir string
}

// NewFileStore создаёт дисковое хранилище. Проверяет и создаёт
// директорию, если она не существует.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// Put записывает данные из reader на диск под ключом key.
// Повторная запись с тем же ключом перезаписывает файл (atomic rename).
// При ошибке temp файл удаляется.
func (fs *FileStore) Put(_ context.Context, key string, reader io.Reader) (*PutResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(fs.dataDir, key)
	tmpPath := fullPath + ".tmp"

	// Создаём temp файл
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256
	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename — перезаписывает существующий блоб с тем же ключом
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &PutResult{
		Locator:  fullPath,
		Size:     size,
		Checksum: base64.StdEncoding.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает блоб для чтения.
func (fs *FileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(fs.dataDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("блоб не найден: %s", key)
		}
		return nil, fmt.Errorf("ошибка открытия блоба %s: %w", key, err)
	}

	return f, nil
}

// Delete удаляет блоб с диска. Возвращает nil, если блоба уже нет.
func (fs *FileStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(fs.dataDir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления блоба %s: %w", key, err)
	}
	return nil
}

// Exists проверяет существование блоба на диске.
func (fs *FileStore) Exists(key string) bool {
	if validateKey(key) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(fs.dataDir, key))
	return err == nil
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// validateKey отклоняет ключи, способные выйти за пределы dataDir.
// Ключи генерируются сервисом как UUID, проверка — защита границы пакета.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("недопустимый ключ блоба: %q", key)
	}
	return nil
}
