package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	apierrors "github.com/dlinov/podcasts-hosting/internal/api/errors"
	"github.com/dlinov/podcasts-hosting/internal/api/middleware"
	"github.com/dlinov/podcasts-hosting/internal/domain/model"
	"github.com/dlinov/podcasts-hosting/internal/repository"
	"github.com/dlinov/podcasts-hosting/internal/storage/blobstore"
)

// DownloadResult — результат запроса на скачивание.
type DownloadResult struct {
	// Reader — поток содержимого, вызывающий код обязан закрыть
	Reader io.ReadCloser
	// Record — метаданные записи (размер, тип, имя файла)
	Record *model.AudioRecord
}

// AudioService — выдача, список и удаление аудиозаписей.
type AudioService struct {
	store  blobstore.BlobStore
	repo   repository.AudioRepository
	logger *slog.Logger
}

// NewAudioService создаёт сервис аудиозаписей.
func NewAudioService(store blobstore.BlobStore, repo repository.AudioRepository, logger *slog.Logger) *AudioService {
	return &AudioService{
		store:  store,
		repo:   repo,
		logger: logger.With(slog.String("component", "audio_service")),
	}
}

// List возвращает все записи в порядке загрузки (старые первыми).
func (s *AudioService) List(ctx context.Context) ([]*model.AudioRecord, *ServiceError) {
	records, err := s.repo.ListByUploadTime(ctx)
	if err != nil {
		s.logger.Error("Ошибка чтения списка записей", slog.String("error", err.Error()))
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodePersistenceError,
			Message:    "Ошибка чтения списка записей",
		}
	}
	return records, nil
}

// Get возвращает запись по идентификатору.
func (s *AudioService) Get(ctx context.Context, audioID string) (*model.AudioRecord, *ServiceError) {
	rec, err := s.repo.GetByID(ctx, audioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ServiceError{
				StatusCode: 404,
				Code:       apierrors.CodeNotFound,
				Message:    "Запись не найдена",
			}
		}
		s.logger.Error("Ошибка чтения записи",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodePersistenceError,
			Message:    "Ошибка чтения записи",
		}
	}
	return rec, nil
}

// Download открывает поток содержимого записи.
// Сначала метаданные из БД, затем блоб по ключу audio_id.
func (s *AudioService) Download(ctx context.Context, audioID string) (*DownloadResult, *ServiceError) {
	rec, svcErr := s.Get(ctx, audioID)
	if svcErr != nil {
		middleware.OperationsTotal.WithLabelValues("download", "not_found").Inc()
		return nil, svcErr
	}

	reader, err := s.store.Open(ctx, audioID)
	if err != nil {
		middleware.OperationsTotal.WithLabelValues("download", "storage_error").Inc()
		s.logger.Error("Метаданные есть, но блоб недоступен",
			slog.String("audio_id", audioID),
			slog.String("locator", rec.StorageLocator),
			slog.String("error", err.Error()),
		)
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageError,
			Message:    "Файл недоступен в хранилище",
		}
	}

	middleware.OperationsTotal.WithLabelValues("download", "success").Inc()
	return &DownloadResult{Reader: reader, Record: rec}, nil
}

// Delete удаляет запись: сначала блоб, затем строку метаданных.
// Возвращает false если записи нет — это не ошибка.
//
// Порядок именно блоб-потом-метаданные: при сбое между шагами
// останется строка метаданных без блоба (обнаружимо и исправимо),
// а не осиротевший блоб без учёта.
func (s *AudioService) Delete(ctx context.Context, audioID string) (bool, *ServiceError) {
	_, err := s.repo.GetByID(ctx, audioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		s.logger.Error("Ошибка чтения записи перед удалением",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return false, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodePersistenceError,
			Message:    "Ошибка чтения записи",
		}
	}

	// Отсутствие блоба не ошибка, повторное удаление безопасно
	if err := s.store.Delete(ctx, audioID); err != nil {
		middleware.OperationsTotal.WithLabelValues("delete", "storage_error").Inc()
		s.logger.Error("Ошибка удаления блоба",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return false, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageError,
			Message:    "Ошибка удаления файла из хранилища",
		}
	}

	if err := s.repo.Delete(ctx, audioID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		middleware.OperationsTotal.WithLabelValues("delete", "persistence_error").Inc()
		s.logger.Error("Блоб удалён, но строка метаданных осталась",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return false, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodePersistenceError,
			Message:    "Ошибка удаления метаданных",
		}
	}

	middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
	middleware.AudiosTotal.Dec()

	s.logger.Info("Запись удалена", slog.String("audio_id", audioID))
	return true, nil
}
