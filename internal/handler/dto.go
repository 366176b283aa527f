package handler

import (
	"encoding/json"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
)

// CreateLinkRequest is the body of POST /urls and one item of POST /urls/batch.
// A missing longUrl is reported as invalid_url by the service.
type CreateLinkRequest struct {
	LongURL   string `json:"longUrl"`
	ShortCode string `json:"shortCode,omitempty"`
	// Kept raw so non-numeric values can be reported as invalid_validity.
	ValidityMinutes json.RawMessage `json:"validityMinutes,omitempty"`
}

type CreateLinkResponse struct {
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiryDate  time.Time `json:"expiryDate"`
}

type BatchItemResponse struct {
	Index int                 `json:"index"`
	Link  *CreateLinkResponse `json:"link,omitempty"`
	Error *ErrorResponse      `json:"error,omitempty"`
}

type BatchResponse struct {
	Results []BatchItemResponse `json:"results"`
}

type ClickResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Location  string    `json:"location"`
}

// LinkResponse is one entry of the statistics listing.
type LinkResponse struct {
	ShortCode   string            `json:"shortCode"`
	ShortURL    string            `json:"shortUrl"`
	OriginalURL string            `json:"originalUrl"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiryDate  time.Time         `json:"expiryDate"`
	Status      models.LinkStatus `json:"status"`
	ClickCount  int               `json:"clickCount"`
	Clicks      []ClickResponse   `json:"clicks"`
}

type VisitResponse struct {
	OriginalURL string        `json:"originalUrl"`
	Click       ClickResponse `json:"click"`
}

// ErrorResponse carries a stable machine-readable code and a human message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toClickResponse(c models.Click) ClickResponse {
	return ClickResponse{
		ID:        c.ID,
		Timestamp: c.Timestamp,
		Source:    c.Source,
		Location:  c.Location,
	}
}

func (h *LinkHandler) toCreateResponse(link *models.Link) *CreateLinkResponse {
	return &CreateLinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    h.shortURL(link.ShortCode),
		OriginalURL: link.LongURL,
		CreatedAt:   link.CreatedAt,
		ExpiryDate:  link.ExpiresAt,
	}
}

func (h *LinkHandler) toLinkResponse(stats models.LinkStats) LinkResponse {
	clicks := make([]ClickResponse, 0, len(stats.Link.Clicks))
	for _, c := range stats.Link.Clicks {
		clicks = append(clicks, toClickResponse(c))
	}
	return LinkResponse{
		ShortCode:   stats.Link.ShortCode,
		ShortURL:    h.shortURL(stats.Link.ShortCode),
		OriginalURL: stats.Link.LongURL,
		CreatedAt:   stats.Link.CreatedAt,
		ExpiryDate:  stats.Link.ExpiresAt,
		Status:      stats.Status,
		ClickCount:  stats.ClickCount,
		Clicks:      clicks,
	}
}
