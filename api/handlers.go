package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/switchwise/newspulse/core"
)

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 100
	maxSearchHits   = 50
)

// detail is the error body shape for all endpoints.
type detail struct {
	Detail string `json:"detail"`
}

type articlePayload struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	PublishedAt time.Time         `json:"published_at,omitzero"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type articleView struct {
	Id          uint64            `json:"id"`
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Embedded    bool              `json:"embedded"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ingestResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Ids     []uint64 `json:"ids"`
	Count   int      `json:"count"`
}

type listResponse struct {
	Articles   []articleView `json:"articles"`
	TotalCount int           `json:"total_count"`
	First      int           `json:"first"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

type similarView struct {
	ArticleId uint64  `json:"article_id"`
	Score     float32 `json:"score"`
}

type trendingView struct {
	Article articleView   `json:"article"`
	Similar []similarView `json:"similar"`
}

type trendingResponse struct {
	Trending []trendingView `json:"trending"`
	Count    int            `json:"count"`
}

type searchHitView struct {
	Article articleView `json:"article"`
	Score   float32     `json:"score"`
}

type searchResponse struct {
	Results []searchHitView `json:"results"`
	Count   int             `json:"count"`
}

func viewOf(article *core.Article) articleView {
	return articleView{
		Id:          uint64(article.Id),
		URL:         article.URL,
		Title:       article.Title,
		Content:     article.Content,
		Source:      article.Source,
		PublishedAt: article.PublishedAt,
		Embedded:    article.HasVector(),
		Metadata:    article.Metadata,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, detail{Detail: message})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "newspulse article service",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.articleRepository.GetRecentArticles(r.Context(), 1); err != nil {
		s.logger.Error("store health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payloads []articlePayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be a JSON array of articles")
		return
	}
	if len(payloads) == 0 {
		writeError(w, http.StatusBadRequest, "No articles provided")
		return
	}

	articles := make([]*core.Article, len(payloads))
	for i, p := range payloads {
		articles[i] = &core.Article{
			URL:         p.URL,
			Title:       p.Title,
			Content:     p.Content,
			PublishedAt: p.PublishedAt,
			Metadata:    p.Metadata,
		}
	}

	added, err := s.pipeline.Ingest(r.Context(), articles, nil)
	if err != nil {
		if errors.Is(err, core.ErrInvalidArticle) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingestion failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to store articles")
		return
	}

	ids := make([]uint64, len(added))
	for i, article := range added {
		ids[i] = uint64(article.Id)
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success: true,
		Message: "Articles accepted for processing",
		Ids:     ids,
		Count:   len(ids),
	})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(w, r)
	if !ok {
		return
	}
	first, page := parsePagination(r)

	ctx := r.Context()
	total, err := s.articleRepository.CountArticlesByDateRange(ctx, window.start, window.end)
	if err != nil {
		s.logger.Error("counting articles failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve articles")
		return
	}

	articles, err := s.articleRepository.GetArticlesByDateRange(ctx, window.start, window.end)
	if err != nil {
		s.logger.Error("listing articles failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve articles")
		return
	}

	offset := (page - 1) * first
	if offset >= len(articles) {
		articles = nil
	} else {
		articles = articles[offset:]
		if len(articles) > first {
			articles = articles[:first]
		}
	}

	views := make([]articleView, len(articles))
	for i, article := range articles {
		views[i] = viewOf(article)
	}

	writeJSON(w, http.StatusOK, listResponse{
		Articles:   views,
		TotalCount: total,
		First:      first,
		Page:       page,
		TotalPages: (total + first - 1) / first,
	})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(w, r)
	if !ok {
		return
	}
	first, page := parsePagination(r)

	results, err := s.detector.Detect(r.Context(), window.start, window.end, first, page)
	if err != nil {
		s.logger.Error("trending detection failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to detect trending articles")
		return
	}

	views := make([]trendingView, len(results))
	for i, result := range results {
		similar := make([]similarView, len(result.Similar))
		for j, match := range result.Similar {
			similar[j] = similarView{ArticleId: uint64(match.ArticleId), Score: match.Score}
		}
		views[i] = trendingView{
			Article: viewOf(result.Article),
			Similar: similar,
		}
	}

	writeJSON(w, http.StatusOK, trendingResponse{Trending: views, Count: len(views)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	limit := maxSearchHits
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Query parameter 'limit' must be a positive integer")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	results, err := s.searcher.FindSimilar(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	hits := make([]searchHitView, len(results))
	for i, result := range results {
		hits[i] = searchHitView{Article: viewOf(result.Article), Score: result.Score}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: hits, Count: len(hits)})
}

type window struct {
	start, end time.Time
}

// parseWindow reads start_date and end_date query parameters.
// Dates use YYYY-MM-DD; the end date is inclusive through end of day.
// Missing bounds default to the epoch and the end of today respectively.
// Writes a 400 response and returns ok=false on malformed input.
func parseWindow(w http.ResponseWriter, r *http.Request) (window, bool) {
	q := r.URL.Query()

	start := time.Unix(0, 0).UTC()
	if raw := q.Get("start_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format. Use YYYY-MM-DD")
			return window{}, false
		}
		start = parsed
	}

	end := time.Now().UTC()
	if raw := q.Get("end_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date format. Use YYYY-MM-DD")
			return window{}, false
		}
		end = parsed
	}
	end = endOfDay(end)

	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date precedes start_date")
		return window{}, false
	}

	return window{start: start, end: end}, true
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Microsecond), time.UTC)
}

// parsePagination reads first and page query parameters, applying the
// service defaults: first defaults to 100 and page is clamped to >= 1.
func parsePagination(r *http.Request) (first, page int) {
	q := r.URL.Query()

	first = defaultPageSize
	if raw := q.Get("first"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			first = parsed
		}
	}

	page = 1
	if raw := q.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 1 {
			page = parsed
		}
	}

	return first, page
}
