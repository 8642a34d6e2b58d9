package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/dlinov/podcasts-hosting/internal/api/errors"
	"github.com/dlinov/podcasts-hosting/internal/api/middleware"
	"github.com/dlinov/podcasts-hosting/internal/config"
	"github.com/dlinov/podcasts-hosting/internal/domain/model"
	"github.com/dlinov/podcasts-hosting/internal/repository"
	"github.com/dlinov/podcasts-hosting/internal/storage/blobstore"
)

// UploadParams — параметры загрузки аудиофайла.
type UploadParams struct {
	// Reader — поток данных файла. Для вычисления хэша fallback-ом
	// должен поддерживать io.ReadSeeker (multipart.File поддерживает).
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла (источник расширения)
	OriginalFilename string
	// Size — размер файла в байтах
	Size int64
	// BookName — название книги (обязательное)
	BookName string
	// BookSeries — серия книги (опционально)
	BookSeries string
	// ChapterTitle — название главы (опционально)
	ChapterTitle string
	// ChapterNumber — номер главы (опционально)
	ChapterNumber *int
	// UploadedBy — идентификатор пользователя (sub из JWT), пустая строка
	// означает анонимную загрузку
	UploadedBy string
}

// UploadService — сервис загрузки аудиофайлов.
type UploadService struct {
	cfg    *config.Config
	store  blobstore.BlobStore
	repo   repository.AudioRepository
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
func NewUploadService(
	cfg *config.Config,
	store blobstore.BlobStore,
	repo repository.AudioRepository,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:    cfg,
		store:  store,
		repo:   repo,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает аудиофайл в блоб-хранилище и сохраняет метаданные.
//
// Поток:
//  1. Валидация входа (до любого I/O)
//  2. Генерация audio_id, извлечение расширения, составление названия
//  3. Запись блоба под ключом audio_id (повторная запись перезаписывает)
//  4. Хэш из хранилища, либо локальный подсчёт по перемотанному потоку
//  5. Вставка метаданных в БД
//
// При ошибке вставки — компенсирующее удаление блоба (best-effort):
// вызывающему возвращается исходная ошибка вставки, неудачное удаление
// лишь логируется как предупреждение.
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*model.AudioRecord, *ServiceError) {
	// 1. Валидация до любого I/O
	if params.Reader == nil || params.Size == 0 {
		middleware.OperationsTotal.WithLabelValues("upload", "validation_error").Inc()
		return nil, &ServiceError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Файл отсутствует или пуст",
		}
	}
	if strings.TrimSpace(params.BookName) == "" {
		middleware.OperationsTotal.WithLabelValues("upload", "validation_error").Inc()
		return nil, &ServiceError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Название книги не заполнено",
		}
	}
	if params.Size > s.cfg.MaxFileSize {
		middleware.OperationsTotal.WithLabelValues("upload", "file_too_large").Inc()
		return nil, &ServiceError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", params.Size, s.cfg.MaxFileSize),
		}
	}

	// 2. Идентификатор, расширение, название
	audioID := uuid.New().String()

	ext := filepath.Ext(params.OriginalFilename)
	if len(ext) > model.MaxExtensionLen {
		middleware.OperationsTotal.WithLabelValues("upload", "validation_error").Inc()
		return nil, &ServiceError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Расширение файла длиннее %d символов", model.MaxExtensionLen),
		}
	}

	title := BuildTitle(params.BookName, params.BookSeries, params.ChapterTitle, params.ChapterNumber)
	if len(title) > model.MaxTitleLen {
		middleware.OperationsTotal.WithLabelValues("upload", "validation_error").Inc()
		return nil, &ServiceError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Название записи длиннее %d символов", model.MaxTitleLen),
		}
	}

	// 3. Запись блоба
	putResult, err := s.store.Put(ctx, audioID, params.Reader)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("upload", "storage_error").Inc()
		s.logger.Error("Ошибка записи в хранилище",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageError,
			Message:    "Ошибка записи файла в хранилище",
		}
	}

	// 4. Хэш содержимого: предпочитаем результат хранилища
	checksum := putResult.Checksum
	if checksum == "" {
		checksum, err = s.computeChecksum(params.Reader)
		if err != nil {
			// Блоб записан, но метаданных не будет — убираем его
			s.cleanupBlob(ctx, audioID)
			middleware.OperationsTotal.WithLabelValues("upload", "storage_error").Inc()
			s.logger.Error("Ошибка вычисления хэша",
				slog.String("audio_id", audioID),
				slog.String("error", err.Error()),
			)
			return nil, &ServiceError{
				StatusCode: 500,
				Code:       apierrors.CodeStorageError,
				Message:    "Ошибка вычисления хэша файла",
			}
		}
	}

	// 5. Вставка метаданных
	var uploadedBy *string
	if params.UploadedBy != "" {
		uploadedBy = &params.UploadedBy
	}

	rec := &model.AudioRecord{
		AudioID:        audioID,
		DisplayTitle:   title,
		StorageLocator: putResult.Locator,
		ContentHash:    checksum,
		SizeBytes:      putResult.Size,
		Extension:      ext,
		UploadedAt:     time.Now().UTC(),
		UploadedBy:     uploadedBy,
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		// Компенсирующее удаление: блоб без метаданных — сирота
		s.cleanupBlob(ctx, audioID)
		middleware.OperationsTotal.WithLabelValues("upload", "persistence_error").Inc()
		s.logger.Error("Ошибка вставки метаданных",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodePersistenceError,
			Message:    "Ошибка сохранения метаданных",
		}
	}

	middleware.OperationsTotal.WithLabelValues("upload", "success").Inc()
	middleware.AudiosTotal.Inc()

	s.logger.Info("Аудиофайл загружен",
		slog.String("audio_id", audioID),
		slog.String("title", title),
		slog.Int64("size", putResult.Size),
		slog.String("checksum", checksum),
		slog.String("uploaded_by", params.UploadedBy),
	)

	return rec, nil
}

// computeChecksum вычисляет base64 SHA-256 по перемотанному потоку.
// Поток обязан поддерживать Seek — multipart-файлы поддерживают.
func (s *UploadService) computeChecksum(reader io.Reader) (string, error) {
	seeker, ok := reader.(io.ReadSeeker)
	if !ok {
		return "", fmt.Errorf("поток не поддерживает перемотку для вычисления хэша")
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("перемотка потока: %w", err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, seeker); err != nil {
		return "", fmt.Errorf("чтение потока: %w", err)
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// cleanupBlob удаляет блоб best-effort: неудача не фатальна,
// сирота допустима и фиксируется предупреждением в логе.
func (s *UploadService) cleanupBlob(ctx context.Context, audioID string) {
	if err := s.store.Delete(ctx, audioID); err != nil {
		s.logger.Warn("Не удалось удалить блоб при откате, возможна осиротевшая запись в хранилище",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
	}
}
