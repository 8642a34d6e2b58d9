package service

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/dlinov/podcasts-hosting/internal/api/errors"
	"github.com/dlinov/podcasts-hosting/internal/config"
	"github.com/dlinov/podcasts-hosting/internal/domain/model"
	"github.com/dlinov/podcasts-hosting/internal/repository"
)

// Структуры RSS 2.0 с расширениями itunes и podcast.
// Набор каналных элементов фиксирован и не настраивается по записям.

type rssFeed struct {
	XMLName      xml.Name `xml:"rss"`
	Version      string   `xml:"version,attr"`
	XmlnsItunes  string   `xml:"xmlns:itunes,attr"`
	XmlnsPodcast string   `xml:"xmlns:podcast,attr"`
	XmlnsAtom    string   `xml:"xmlns:atom,attr"`
	Channel      rssChannel
}

type rssChannel struct {
	XMLName     xml.Name `xml:"channel"`
	AtomLink    atomLink
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Language    string `xml:"language"`
	Category    itunesCategory
	Explicit    string `xml:"itunes:explicit"`
	Image       itunesImage
	Items       []rssItem
}

type atomLink struct {
	XMLName xml.Name `xml:"atom:link"`
	Href    string   `xml:"href,attr"`
	Rel     string   `xml:"rel,attr"`
	Type    string   `xml:"type,attr"`
}

type itunesCategory struct {
	XMLName xml.Name `xml:"itunes:category"`
	Text    string   `xml:"text,attr"`
	Sub     *itunesCategory
}

type itunesImage struct {
	XMLName xml.Name `xml:"itunes:image"`
	Href    string   `xml:"href,attr"`
}

type rssItem struct {
	XMLName   xml.Name `xml:"item"`
	Title     string   `xml:"title"`
	Enclosure rssEnclosure
	GUID      string `xml:"guid"`
	PubDate   string `xml:"pubDate"`
}

type rssEnclosure struct {
	XMLName xml.Name `xml:"enclosure"`
	URL     string   `xml:"url,attr"`
	Length  int64    `xml:"length,attr"`
	Type    string   `xml:"type,attr"`
}

// FeedService — генерация RSS-фида из метаданных.
type FeedService struct {
	cfg    *config.Config
	repo   repository.AudioRepository
	logger *slog.Logger
}

// NewFeedService создаёт сервис фида.
func NewFeedService(cfg *config.Config, repo repository.AudioRepository, logger *slog.Logger) *FeedService {
	return &FeedService{
		cfg:    cfg,
		repo:   repo,
		logger: logger.With(slog.String("component", "feed_service")),
	}
}

// BuildFeed читает все записи и строит RSS-документ.
// Порядок элементов — по времени загрузки, старые первыми,
// по одному item на запись, без пропусков и дедупликации.
func (s *FeedService) BuildFeed(ctx context.Context) ([]byte, *ServiceError) {
	records, err := s.repo.ListByUploadTime(ctx)
	if err != nil {
		s.logger.Error("Ошибка чтения записей для фида", slog.String("error", err.Error()))
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodePersistenceError,
			Message:    "Ошибка чтения записей",
		}
	}

	data, err := xml.MarshalIndent(s.renderFeed(records), "", "  ")
	if err != nil {
		s.logger.Error("Ошибка сериализации фида", slog.String("error", err.Error()))
		return nil, &ServiceError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка формирования фида",
		}
	}

	return append([]byte(xml.Header), data...), nil
}

// renderFeed собирает структуру документа из записей.
func (s *FeedService) renderFeed(records []*model.AudioRecord) *rssFeed {
	base := s.cfg.BaseURL

	items := make([]rssItem, 0, len(records))
	for _, rec := range records {
		items = append(items, rssItem{
			Title: rec.DisplayTitle,
			Enclosure: rssEnclosure{
				URL:    fmt.Sprintf("%s/download/%s", base, rec.AudioID),
				Length: rec.SizeBytes,
				Type:   rec.ContentType(),
			},
			GUID: rec.AudioID,
			// http.TimeFormat даёт RFC 1123 с зоной GMT
			PubDate: rec.UploadedAt.UTC().Format(http.TimeFormat),
		})
	}

	return &rssFeed{
		Version:      "2.0",
		XmlnsItunes:  "http://www.itunes.com/dtds/podcast-1.0.dtd",
		XmlnsPodcast: "http://podcastindex.org/namespace/1.0",
		XmlnsAtom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			AtomLink: atomLink{
				Href: base + "/feed.rss",
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Title:       s.cfg.ChannelTitle,
			Link:        base,
			Description: s.cfg.ChannelDescription,
			Language:    "ru-ru",
			Category: itunesCategory{
				Text: "Arts",
				Sub:  &itunesCategory{Text: "Books"},
			},
			Explicit: "no",
			Image:    itunesImage{Href: base + "/images/logo.jpg"},
			Items:    items,
		},
	}
}
