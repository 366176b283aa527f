package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
	"github.com/SergeiKhy/shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LocationHeader carries the caller's location label, set by an edge proxy.
const LocationHeader = "X-Client-Location"

const maxBatchSize = 5

// LinkHandler serves the link endpoints on top of a LinkService.
type LinkHandler struct {
	service service.LinkService
	baseURL string
	logger  *zap.Logger
}

// NewLinkHandler builds short URLs as baseURL + "/" + code.
func NewLinkHandler(service service.LinkService, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		baseURL: baseURL,
		logger:  logger,
	}
}

// CreateLink handles POST /urls.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.writeError(c, err)
		return
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.toCreateResponse(link))
}

// CreateLinks handles POST /urls/batch. Every item gets its own result.
func (h *LinkHandler) CreateLinks(c *gin.Context) {
	var reqs []CreateLinkRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		h.logger.Warn("Invalid batch body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if len(reqs) == 0 || len(reqs) > maxBatchSize {
		h.writeError(c, service.ErrBatchSize)
		return
	}

	// Items that fail local validation still occupy their slot.
	results := make([]BatchItemResponse, len(reqs))
	inputs := make([]*models.CreateLinkInput, 0, len(reqs))
	positions := make([]int, 0, len(reqs))
	for i, req := range reqs {
		results[i].Index = i
		input, err := req.toInput()
		if err != nil {
			_, body := errorResponse(err)
			results[i].Error = &body
			continue
		}
		inputs = append(inputs, input)
		positions = append(positions, i)
	}

	if len(inputs) > 0 {
		created, err := h.service.CreateLinks(c.Request.Context(), inputs)
		if err != nil {
			h.writeError(c, err)
			return
		}
		for j, res := range created {
			i := positions[j]
			if res.Err != nil {
				_, body := errorResponse(res.Err)
				results[i].Error = &body
				continue
			}
			results[i].Link = h.toCreateResponse(res.Link)
		}
	}

	c.JSON(http.StatusOK, BatchResponse{Results: results})
}

// ListLinks handles GET /urls.
func (h *LinkHandler) ListLinks(c *gin.Context) {
	stats, err := h.service.ListLinks(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]LinkResponse, 0, len(stats))
	for _, s := range stats {
		resp = append(resp, h.toLinkResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

// GetLink handles GET /urls/:code.
func (h *LinkHandler) GetLink(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toLinkResponse(*stats))
}

// Visit handles POST /urls/:code/visit, an access from the statistics view.
func (h *LinkHandler) Visit(c *gin.Context) {
	code := c.Param("code")

	res, err := h.service.Resolve(c.Request.Context(), code, models.SourceStatistics, clientLocation(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Link accessed from statistics", zap.String("code", code))
	c.JSON(http.StatusOK, VisitResponse{
		OriginalURL: res.Link.LongURL,
		Click:       toClickResponse(*res.Click),
	})
}

// Redirect handles GET /:code.
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	res, err := h.service.Resolve(c.Request.Context(), code, models.SourceDirect, clientLocation(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Redirecting",
		zap.String("code", code),
		zap.String("destination", res.Link.LongURL),
	)
	c.Redirect(http.StatusFound, res.Link.LongURL)
}

func (h *LinkHandler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

// writeError logs err and answers with its mapped status.
func (h *LinkHandler) writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("Request failed", fields...)
	case status == http.StatusNotFound || status == http.StatusGone:
		h.logger.Warn("Link unavailable", fields...)
	default:
		h.logger.Info("Request rejected", fields...)
	}

	c.JSON(status, body)
}

func errorResponse(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "Long URL must be a valid http(s) URL",
		}
	case errors.Is(err, service.ErrInvalidCode):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code must be 3-10 alphanumeric characters",
		}
	case errors.Is(err, service.ErrInvalidValidity):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_validity",
			Message: "Validity must be a positive number of minutes",
		}
	case errors.Is(err, service.ErrBatchSize):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_batch",
			Message: "Between 1 and 5 links can be shortened at once",
		}
	case errors.Is(err, repository.ErrCodeExists):
		return http.StatusConflict, ErrorResponse{
			Error:   "duplicate_code",
			Message: "Short code already exists",
		}
	case errors.Is(err, repository.ErrLinkNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		}
	case errors.Is(err, service.ErrExpired):
		return http.StatusGone, ErrorResponse{
			Error:   "expired",
			Message: "Link has expired",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		}
	}
}

func (r CreateLinkRequest) toInput() (*models.CreateLinkInput, error) {
	validity, err := parseValidity(r.ValidityMinutes)
	if err != nil {
		return nil, err
	}
	return &models.CreateLinkInput{
		LongURL:         r.LongURL,
		ShortCode:       r.ShortCode,
		ValidityMinutes: validity,
	}, nil
}

// parseValidity accepts an absent or null value (default window) or a JSON number.
func parseValidity(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var minutes float64
	if err := json.Unmarshal(raw, &minutes); err != nil {
		return nil, service.ErrInvalidValidity
	}
	return &minutes, nil
}

func clientLocation(c *gin.Context) string {
	if loc := c.GetHeader(LocationHeader); loc != "" {
		return loc
	}
	return models.UnknownLocation
}
