package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	apierrors "github.com/dlinov/podcasts-hosting/internal/api/errors"
	"github.com/dlinov/podcasts-hosting/internal/domain/model"
)

// seedRecord добавляет запись с блобом в фейки.
func seedRecord(store *fakeBlobStore, repo *fakeAudioRepo, audioID, content string, uploadedAt time.Time) *model.AudioRecord {
	rec := &model.AudioRecord{
		AudioID:        audioID,
		DisplayTitle:   "Книга " + audioID,
		StorageLocator: "/data/" + audioID,
		ContentHash:    "hash-" + audioID,
		SizeBytes:      int64(len(content)),
		Extension:      ".mp3",
		UploadedAt:     uploadedAt,
	}
	store.blobs[audioID] = []byte(content)
	repo.records[audioID] = rec
	return rec
}

func TestAudioService_Get(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	seedRecord(store, repo, "a1", "content", time.Now().UTC())

	rec, svcErr := svc.Get(context.Background(), "a1")
	if svcErr != nil {
		t.Fatalf("неожиданная ошибка: %v", svcErr)
	}
	if rec.AudioID != "a1" {
		t.Errorf("AudioID = %s, ожидалось a1", rec.AudioID)
	}
}

func TestAudioService_Get_NotFound(t *testing.T) {
	svc := NewAudioService(newFakeBlobStore(), newFakeAudioRepo(), testLogger())

	_, svcErr := svc.Get(context.Background(), "missing")
	if svcErr == nil {
		t.Fatal("ожидалась ошибка not found")
	}
	if svcErr.StatusCode != 404 || svcErr.Code != apierrors.CodeNotFound {
		t.Errorf("получено %d/%s, ожидалось 404/%s", svcErr.StatusCode, svcErr.Code, apierrors.CodeNotFound)
	}
}

func TestAudioService_List_Order(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedRecord(store, repo, "newer", "a", base.Add(2*time.Hour))
	seedRecord(store, repo, "oldest", "b", base)
	seedRecord(store, repo, "middle", "c", base.Add(time.Hour))

	records, svcErr := svc.List(context.Background())
	if svcErr != nil {
		t.Fatalf("неожиданная ошибка: %v", svcErr)
	}

	want := []string{"oldest", "middle", "newer"}
	if len(records) != len(want) {
		t.Fatalf("len = %d, ожидалось %d", len(records), len(want))
	}
	for i, id := range want {
		if records[i].AudioID != id {
			t.Errorf("records[%d] = %s, ожидалось %s", i, records[i].AudioID, id)
		}
	}
}

func TestAudioService_Download(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	seedRecord(store, repo, "a1", "audio content", time.Now().UTC())

	result, svcErr := svc.Download(context.Background(), "a1")
	if svcErr != nil {
		t.Fatalf("неожиданная ошибка: %v", svcErr)
	}
	defer result.Reader.Close()

	data, err := io.ReadAll(result.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio content" {
		t.Errorf("содержимое = %q, ожидалось %q", data, "audio content")
	}
	if result.Record.ContentType() != "audio/mpeg" {
		t.Errorf("ContentType = %s, ожидалось audio/mpeg", result.Record.ContentType())
	}
}

func TestAudioService_Download_NotFound(t *testing.T) {
	svc := NewAudioService(newFakeBlobStore(), newFakeAudioRepo(), testLogger())

	_, svcErr := svc.Download(context.Background(), "missing")
	if svcErr == nil || svcErr.StatusCode != 404 {
		t.Fatalf("ожидался 404, получено %v", svcErr)
	}
}

// TestAudioService_Download_BlobMissing — метаданные есть, блоба нет.
func TestAudioService_Download_BlobMissing(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	seedRecord(store, repo, "a1", "x", time.Now().UTC())
	delete(store.blobs, "a1")

	_, svcErr := svc.Download(context.Background(), "a1")
	if svcErr == nil {
		t.Fatal("ожидалась ошибка хранилища")
	}
	if svcErr.Code != apierrors.CodeStorageError {
		t.Errorf("код = %s, ожидалось %s", svcErr.Code, apierrors.CodeStorageError)
	}
}

func TestAudioService_Delete(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	seedRecord(store, repo, "a1", "content", time.Now().UTC())

	deleted, svcErr := svc.Delete(context.Background(), "a1")
	if svcErr != nil {
		t.Fatalf("неожиданная ошибка: %v", svcErr)
	}
	if !deleted {
		t.Error("ожидалось deleted=true")
	}
	if _, ok := store.blobs["a1"]; ok {
		t.Error("блоб не удалён")
	}
	if _, ok := repo.records["a1"]; ok {
		t.Error("метаданные не удалены")
	}
}

// TestAudioService_Delete_NotFound — отсутствие записи не ошибка.
func TestAudioService_Delete_NotFound(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	deleted, svcErr := svc.Delete(context.Background(), "missing")
	if svcErr != nil {
		t.Fatalf("неожиданная ошибка: %v", svcErr)
	}
	if deleted {
		t.Error("ожидалось deleted=false")
	}
	if len(store.deleteCalls) != 0 {
		t.Error("Delete блоба вызван для отсутствующей записи")
	}
}

// TestAudioService_Delete_BlobError — при сбое удаления блоба
// строка метаданных остаётся (порядок блоб-потом-метаданные).
func TestAudioService_Delete_BlobError(t *testing.T) {
	store := newFakeBlobStore()
	repo := newFakeAudioRepo()
	svc := NewAudioService(store, repo, testLogger())

	seedRecord(store, repo, "a1", "content", time.Now().UTC())
	store.deleteErr = errors.New("хранилище недоступно")

	_, svcErr := svc.Delete(context.Background(), "a1")
	if svcErr == nil {
		t.Fatal("ожидалась ошибка")
	}
	if _, ok := repo.records["a1"]; !ok {
		t.Error("метаданные удалены при сбое удаления блоба")
	}
}
