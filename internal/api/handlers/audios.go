// audios.go — HTTP handlers операций с аудиозаписями.
// Upload, List, Get, Delete, Download.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dlinov/podcasts-hosting/internal/api/errors"
	"github.com/dlinov/podcasts-hosting/internal/api/middleware"
	"github.com/dlinov/podcasts-hosting/internal/config"
	"github.com/dlinov/podcasts-hosting/internal/domain/model"
	"github.com/dlinov/podcasts-hosting/internal/service"
)

// AudiosHandler — обработчик endpoints аудиозаписей.
type AudiosHandler struct {
	cfg       *config.Config
	uploadSvc *service.UploadService
	audioSvc  *service.AudioService
}

// NewAudiosHandler создаёт обработчик аудиозаписей.
func NewAudiosHandler(cfg *config.Config, uploadSvc *service.UploadService, audioSvc *service.AudioService) *AudiosHandler {
	return &AudiosHandler{
		cfg:       cfg,
		uploadSvc: uploadSvc,
		audioSvc:  audioSvc,
	}
}

// audioListResponse — ответ списка записей.
type audioListResponse struct {
	Items []*model.AudioRecord `json:"items"`
	Total int                  `json:"total"`
}

// Upload обрабатывает POST /api/v1/audios/upload.
// Multipart form: file (обязательно), book_name (обязательно),
// book_series, chapter_title, chapter_number (опционально).
func (h *AudiosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	// Жёсткий лимит тела запроса: файл + запас на поля формы
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxFileSize+(1<<20))

	// 32 MB в памяти, остальное во временных файлах (seekable)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		// Срез по MaxBytesReader — это превышение размера, а не кривой запрос
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			errors.FileTooLarge(w, fmt.Sprintf("Тело запроса превышает лимит %d байт", maxBytesErr.Limit))
			return
		}
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	var chapterNumber *int
	if raw := strings.TrimSpace(r.FormValue("chapter_number")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errors.ValidationError(w, fmt.Sprintf("Некорректный номер главы: %q", raw))
			return
		}
		chapterNumber = &n
	}

	rec, svcErr := h.uploadSvc.Upload(r.Context(), service.UploadParams{
		Reader:           file,
		OriginalFilename: header.Filename,
		Size:             header.Size,
		BookName:         r.FormValue("book_name"),
		BookSeries:       r.FormValue("book_series"),
		ChapterTitle:     r.FormValue("chapter_title"),
		ChapterNumber:    chapterNumber,
		UploadedBy:       subject,
	})
	if svcErr != nil {
		errors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// List обрабатывает GET /api/v1/audios.
// Записи возвращаются в порядке загрузки, старые первыми.
func (h *AudiosHandler) List(w http.ResponseWriter, r *http.Request) {
	records, svcErr := h.audioSvc.List(r.Context())
	if svcErr != nil {
		errors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, audioListResponse{
		Items: records,
		Total: len(records),
	})
}

// Get обрабатывает GET /api/v1/audios/{audio_id}.
func (h *AudiosHandler) Get(w http.ResponseWriter, r *http.Request) {
	audioID, ok := parseAudioID(w, r)
	if !ok {
		return
	}

	rec, svcErr := h.audioSvc.Get(r.Context(), audioID)
	if svcErr != nil {
		errors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Delete обрабатывает DELETE /api/v1/audios/{audio_id}.
// 204 при успехе, 404 если записи нет.
func (h *AudiosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	audioID, ok := parseAudioID(w, r)
	if !ok {
		return
	}

	deleted, svcErr := h.audioSvc.Delete(r.Context(), audioID)
	if svcErr != nil {
		errors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}
	if !deleted {
		errors.NotFound(w, fmt.Sprintf("Запись %s не найдена", audioID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Download обрабатывает GET /download/{audio_id}.
// Публичный endpoint: ссылки на него попадают в RSS-фид.
func (h *AudiosHandler) Download(w http.ResponseWriter, r *http.Request) {
	audioID, ok := parseAudioID(w, r)
	if !ok {
		return
	}

	result, svcErr := h.audioSvc.Download(r.Context(), audioID)
	if svcErr != nil {
		errors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}
	defer result.Reader.Close()

	rec := result.Record
	w.Header().Set("Content-Type", rec.ContentType())
	w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.DownloadFilename()))
	w.WriteHeader(http.StatusOK)

	// Заголовки уже отправлены, ошибка потока только логируется выше по стеку
	_, _ = io.Copy(w, result.Reader)
}

// parseAudioID извлекает и валидирует audio_id из URL.
func parseAudioID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "audio_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		errors.ValidationError(w, fmt.Sprintf("Некорректный идентификатор записи: %q", raw))
		return "", false
	}
	return id.String(), true
}

// writeJSON сериализует ответ с кодом статуса.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
