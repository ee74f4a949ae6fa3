// Package ledger предоставляет клиент для внешнего транзакционного леджера.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmeshcher/spendcontrol-system/internal/model"
)

// Kind описывает тип запрашиваемых транзакций.
type Kind string

const (
	// KindPending — авторизованные, но ещё не проведённые транзакции.
	KindPending Kind = "pending"
	// KindPosted — проведённые транзакции.
	KindPosted Kind = "posted"
)

const pageLimit = 100

// Client инкапсулирует HTTP-взаимодействие с транзакционным леджером.
type Client struct {
	baseURL    string
	apiKey     string
	excludeJIT bool
	httpClient *http.Client
}

type transactionsPage struct {
	Result        []model.Transaction `json:"result"`
	NextPageToken string              `json:"next_page_token"`
}

// NewClient создаёт HTTP-клиент леджера по указанному адресу и ключу API.
func NewClient(baseURL, apiKey string, excludeJIT bool) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		excludeJIT: excludeJIT,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// FetchTransactions загружает все страницы транзакций указанного типа по карте,
// начиная с указанной даты (ISO-дата). Страницы обходятся по next_page_token до
// исчерпания; результаты склеиваются в порядке ответов. Ошибка любой страницы
// прерывает весь запрос без частичного результата.
func (c *Client) FetchTransactions(ctx context.Context, cardID string, kind Kind, fromDate string) ([]model.Transaction, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("ledger client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	endpoint := fmt.Sprintf("%s/v0/transactions/%s", base, kind)

	var all []model.Transaction
	pageToken := ""

	for {
		page, err := c.fetchPage(ctx, endpoint, cardID, fromDate, pageToken)
		if err != nil {
			return nil, fmt.Errorf("fetch %s transactions: %w", kind, err)
		}

		all = append(all, page.Result...)

		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) fetchPage(ctx context.Context, endpoint, cardID, fromDate, pageToken string) (*transactionsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := url.Values{}
	q.Set("card_id", cardID)
	q.Set("type", "card")
	q.Set("from_date", fromDate)
	q.Set("limit", fmt.Sprintf("%d", pageLimit))
	if c.excludeJIT {
		q.Set("exclude_jit_transactions", "true")
	}
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// Финансовое состояние меняется за секунды: промежуточные HTTP-кеши обходятся.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var page transactionsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &page, nil
}
