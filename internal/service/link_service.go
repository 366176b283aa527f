package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/SergeiKhy/shortener/internal/models"
	"github.com/SergeiKhy/shortener/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidCode       = errors.New("invalid short code")
	ErrInvalidValidity   = errors.New("validity must be a positive number of minutes")
	ErrExpired           = errors.New("link expired")
	ErrExhaustedKeyspace = errors.New("short code key space exhausted")
	ErrBatchSize         = errors.New("batch must contain between 1 and 5 links")
)

const (
	maxURLLength = 2048
	maxBatchSize = 5
)

var (
	shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,10}$`)
	hostPattern      = regexp.MustCompile(`^([\da-zA-Z-]+\.)+[a-zA-Z]{2,}$|^localhost$|^\d{1,3}(\.\d{1,3}){3}$`)
)

// LinkService creates links and serves them back for redirects and statistics.
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	// CreateLinks creates each input independently; results follow input order.
	CreateLinks(ctx context.Context, inputs []*models.CreateLinkInput) ([]BatchResult, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	GetStats(ctx context.Context, code string) (*models.LinkStats, error)
	ListLinks(ctx context.Context) ([]models.LinkStats, error)
	Resolve(ctx context.Context, code, source, location string) (*Resolution, error)
	// Ping checks the underlying store.
	Ping(ctx context.Context) error
}

// BatchResult is the outcome of one CreateLinks item: Link on success, Err otherwise.
type BatchResult struct {
	Link *models.Link
	Err  error
}

// Options configures NewLinkService. Zero values fall back to the package defaults.
type Options struct {
	CodeLength             int
	CodeMaxRetries         int
	DefaultValidityMinutes float64
	MaxValidityMinutes     float64
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type linkService struct {
	store     repository.LinkStore
	generator *CodeGenerator
	expiry    ExpiryPolicy
	resolver  *RedirectResolver
	now       func() time.Time
	logger    *zap.Logger
}

// NewLinkService wires the generator, expiry policy, click recorder and resolver
// around a single store handle.
func NewLinkService(store repository.LinkStore, opts Options, logger *zap.Logger) LinkService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	expiry := NewExpiryPolicy(opts.DefaultValidityMinutes, opts.MaxValidityMinutes)
	clicks := NewClickRecorder(store, now)

	return &linkService{
		store:     store,
		generator: NewCodeGenerator(opts.CodeLength, opts.CodeMaxRetries),
		expiry:    expiry,
		resolver:  NewRedirectResolver(store, expiry, clicks, now),
		now:       now,
		logger:    logger,
	}
}

// CreateLink validates the whole input before touching the store.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	longURL, err := normalizeURL(input.LongURL)
	if err != nil {
		return nil, err
	}

	if input.ShortCode != "" && (!shortCodePattern.MatchString(input.ShortCode) || IsReservedCode(input.ShortCode)) {
		return nil, ErrInvalidCode
	}

	window, err := s.expiry.Window(input.ValidityMinutes)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	link := &models.Link{
		ShortCode: input.ShortCode,
		LongURL:   longURL,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(window),
		Clicks:    []models.Click{},
	}

	if link.ShortCode != "" {
		if err := s.store.Put(ctx, link); err != nil {
			return nil, err
		}
	} else if err := s.putGenerated(ctx, link); err != nil {
		if errors.Is(err, ErrExhaustedKeyspace) {
			s.logger.Error("Short code key space exhausted", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Link created",
		zap.String("short_code", link.ShortCode),
		zap.Time("expires_at", link.ExpiresAt),
	)
	return link.Clone(), nil
}

// putGenerated stores link under a fresh code. Availability checks and insert
// collisions share one attempt budget of generator.MaxRetries candidates.
func (s *linkService) putGenerated(ctx context.Context, link *models.Link) error {
	keys := WithReserved(s.store)
	attempts := s.generator.MaxRetries()

	for attempt := 0; attempt < attempts; attempt++ {
		code, err := s.generator.Candidate()
		if err != nil {
			return err
		}

		taken, err := keys.Exists(ctx, code)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		link.ShortCode = code
		err = s.store.Put(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return err
		}
		s.logger.Debug("Generated code collided, retrying", zap.String("short_code", code))
	}

	link.ShortCode = ""
	return fmt.Errorf("%w: no free code after %d attempts", ErrExhaustedKeyspace, attempts)
}

func (s *linkService) CreateLinks(ctx context.Context, inputs []*models.CreateLinkInput) ([]BatchResult, error) {
	if len(inputs) == 0 || len(inputs) > maxBatchSize {
		return nil, ErrBatchSize
	}

	results := make([]BatchResult, len(inputs))
	for i, input := range inputs {
		link, err := s.CreateLink(ctx, input)
		results[i] = BatchResult{Link: link, Err: err}
	}
	return results, nil
}

func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	if !shortCodePattern.MatchString(code) {
		return nil, repository.ErrLinkNotFound
	}
	return s.store.Get(ctx, code)
}

func (s *linkService) GetStats(ctx context.Context, code string) (*models.LinkStats, error) {
	link, err := s.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}
	stats := s.statsFor(link, s.now())
	return &stats, nil
}

// ListLinks returns every link in creation order with its status at call time.
func (s *linkService) ListLinks(ctx context.Context) ([]models.LinkStats, error) {
	links, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := make([]models.LinkStats, 0, len(links))
	for _, link := range links {
		stats = append(stats, s.statsFor(link, now))
	}
	return stats, nil
}

func (s *linkService) Resolve(ctx context.Context, code, source, location string) (*Resolution, error) {
	return s.resolver.Resolve(ctx, code, source, location)
}

func (s *linkService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *linkService) statsFor(link *models.Link, now time.Time) models.LinkStats {
	status := models.StatusActive
	if s.expiry.IsExpired(link, now) {
		status = models.StatusExpired
	}
	return models.LinkStats{
		Link:       link,
		Status:     status,
		ClickCount: len(link.Clicks),
	}
}

// normalizeURL accepts absolute http(s) URLs and scheme-less ones such as
// "example.com/path", which are stored with https.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxURLLength || strings.ContainsAny(raw, " \t\r\n") {
		return "", ErrInvalidURL
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if !hostPattern.MatchString(parsed.Hostname()) {
		return "", ErrInvalidURL
	}

	return parsed.String(), nil
}
