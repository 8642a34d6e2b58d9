package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dlinov/podcasts-hosting/internal/domain/model"
)

// audioColumns — список столбцов таблицы audio_files для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const audioColumns = `audio_id, display_title, storage_locator, content_hash,
	size_bytes, extension, uploaded_at, uploaded_by`

// AudioRepository — доступ к метаданным аудиоглав в audio_files.
// Записи неизменяемы: Update отсутствует намеренно.
type AudioRepository interface {
	// Insert добавляет новую запись. ErrConflict при повторном audio_id.
	Insert(ctx context.Context, rec *model.AudioRecord) error
	// GetByID возвращает запись по UUID или ErrNotFound.
	GetByID(ctx context.Context, audioID string) (*model.AudioRecord, error)
	// Delete удаляет запись. ErrNotFound, если записи нет.
	Delete(ctx context.Context, audioID string) error
	// ListByUploadTime возвращает все записи в порядке uploaded_at ASC.
	// Вторичная сортировка по audio_id делает порядок детерминированным
	// при совпадающих отметках времени.
	ListByUploadTime(ctx context.Context) ([]*model.AudioRecord, error)
}

// audioRepo — реализация AudioRepository через pgx.
type audioRepo struct {
	db DBTX
}

// NewAudioRepository создаёт репозиторий аудиозаписей.
func NewAudioRepository(db DBTX) AudioRepository {
	return &audioRepo{db: db}
}

// Insert добавляет запись метаданных.
func (r *audioRepo) Insert(ctx context.Context, rec *model.AudioRecord) error {
	query := `
		INSERT INTO audio_files (audio_id, display_title, storage_locator,
			content_hash, size_bytes, extension, uploaded_at, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	// Пустое расширение храним как NULL
	var ext *string
	if rec.Extension != "" {
		ext = &rec.Extension
	}

	_, err := r.db.Exec(ctx, query,
		rec.AudioID, rec.DisplayTitle, rec.StorageLocator,
		rec.ContentHash, rec.SizeBytes, ext, rec.UploadedAt, rec.UploadedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка вставки записи: %w", err)
	}
	return nil
}

// GetByID возвращает запись по UUID или ErrNotFound.
func (r *audioRepo) GetByID(ctx context.Context, audioID string) (*model.AudioRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM audio_files WHERE audio_id = $1`, audioColumns)

	rec, err := scanAudioRecord(r.db.QueryRow(ctx, query, audioID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

// Delete удаляет запись метаданных.
func (r *audioRepo) Delete(ctx context.Context, audioID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM audio_files WHERE audio_id = $1`, audioID)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUploadTime возвращает все записи, старые первыми.
func (r *audioRepo) ListByUploadTime(ctx context.Context) ([]*model.AudioRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM audio_files ORDER BY uploaded_at ASC, audio_id ASC`,
		audioColumns,
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	var result []*model.AudioRecord
	for rows.Next() {
		rec, err := scanAudioRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	return result, nil
}

// scanAudioRecord сканирует одну строку audio_files в модель.
func scanAudioRecord(row pgx.Row) (*model.AudioRecord, error) {
	rec := &model.AudioRecord{}
	var ext *string
	if err := row.Scan(
		&rec.AudioID, &rec.DisplayTitle, &rec.StorageLocator, &rec.ContentHash,
		&rec.SizeBytes, &ext, &rec.UploadedAt, &rec.UploadedBy,
	); err != nil {
		return nil, err
	}
	if ext != nil {
		rec.Extension = *ext
	}
	return rec, nil
}
