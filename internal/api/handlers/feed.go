// feed.go — публичный RSS-фид каталога.
package handlers

import (
	"net/http"

	"github.com/dlinov/podcasts-hosting/internal/api/errors"
	"github.com/dlinov/podcasts-hosting/internal/service"
)

// FeedHandler — обработчик GET /feed.rss.
type FeedHandler struct {
	feedSvc *service.FeedService
}

// NewFeedHandler создаёт обработчик фида.
func NewFeedHandler(feedSvc *service.FeedService) *FeedHandler {
	return &FeedHandler{feedSvc: feedSvc}
}

// Feed обрабатывает GET /feed.rss.
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	data, svcErr := h.feedSvc.BuildFeed(r.Context())
	if svcErr != nil {
		errors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
