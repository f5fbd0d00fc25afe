package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/config"
	"github.com/baxromumarov/hh-collector/internal/httpx"
	"github.com/baxromumarov/hh-collector/internal/urlutil"
)

type searchResponse struct {
	Items []RawVacancy `json:"items"`
	Found int          `json:"found"`
	Pages int          `json:"pages"`
}

// HHClient talks to the public hh.ru API. Only the first result page is read.
type HHClient struct {
	http    *httpx.PoliteClient
	baseURL string
	area    int
	perPage int
	logger  *zap.Logger
}

func NewHHClient(cfg *config.Config, logger *zap.Logger) *HHClient {
	return &HHClient{
		http:    httpx.NewPoliteClient(cfg.HHUserAgent, cfg.HHAPITimeout, cfg.HHRatePerSecond),
		baseURL: strings.TrimRight(cfg.HHAPIBaseURL, "/"),
		area:    cfg.HHArea,
		perPage: cfg.HHPerPage,
		logger:  logger,
	}
}

func (c *HHClient) SearchVacancies(ctx context.Context, text string) ([]RawVacancy, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("area", strconv.Itoa(c.area))
	q.Set("per_page", strconv.Itoa(c.perPage))
	endpoint, err := urlutil.Endpoint(c.baseURL, q, "vacancies")
	if err != nil {
		return nil, apperr.Config("building vacancy search url", err)
	}

	c.logger.Debug("searching vacancies", zap.String("text", text), zap.String("url", endpoint))

	var resp searchResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		c.logger.Error("vacancy search failed", zap.String("text", text), zap.Error(err))
		return nil, apperr.Transport(fmt.Sprintf("searching vacancies for %q", text), err)
	}

	c.logger.Info("vacancy search done",
		zap.String("text", text),
		zap.Int("found", resp.Found),
		zap.Int("items", len(resp.Items)))
	return resp.Items, nil
}

func (c *HHClient) Employer(ctx context.Context, id int) (*RawEmployer, error) {
	endpoint, err := urlutil.Endpoint(c.baseURL, nil, "employers", strconv.Itoa(id))
	if err != nil {
		return nil, apperr.Config("building employer url", err)
	}
	c.logger.Debug("fetching employer", zap.Int("id", id))

	var emp RawEmployer
	if err := c.http.GetJSON(ctx, endpoint, &emp); err != nil {
		var fe *httpx.FetchError
		if errors.As(err, &fe) && fe.Status == http.StatusNotFound {
			c.logger.Warn("employer not found", zap.Int("id", id))
			return nil, apperr.NotFound(fmt.Sprintf("employer %d", id), err)
		}
		c.logger.Error("employer fetch failed", zap.Int("id", id), zap.Error(err))
		return nil, apperr.Transport(fmt.Sprintf("fetching employer %d", id), err)
	}
	return &emp, nil
}
