package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

type Options struct {
	BaseURL        string
	CalendarID     string
	Secrets        ports.SecretStore
	TokenRef       string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	MutationPause  time.Duration
	Logger         *slog.Logger
}

type Client struct {
	baseURL    *url.URL
	calendarID string
	secrets    ports.SecretStore
	tokenRef   string
	http       *http.Client
	timeout    time.Duration
	mutations  *rate.Limiter
	logger     *slog.Logger
	token      string
}

var (
	_ ports.BusyIntervalProvider = (*Client)(nil)
	_ ports.EventScheduler       = (*Client)(nil)
	_ ports.CalendarSubscriber   = (*Client)(nil)
)

func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.TokenRef != "" && opts.Secrets == nil {
		return nil, fmt.Errorf("%w: calendar token_ref set without a secret store", domain.ErrInvalidConfig)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.MutationPause > 0 {
		limit = rate.Every(opts.MutationPause)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    base,
		calendarID: opts.CalendarID,
		secrets:    opts.Secrets,
		tokenRef:   opts.TokenRef,
		http:       httpClient,
		timeout:    timeout,
		mutations:  rate.NewLimiter(limit, 1),
		logger:     logger,
	}, nil
}

type freeBusyRequest struct {
	TimeMin string         `json:"timeMin"`
	TimeMax string         `json:"timeMax"`
	Items   []freeBusyItem `json:"items"`
}

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"busy"`
		Errors []struct {
			Domain string `json:"domain"`
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"calendars"`
}

func (c *Client) Query(ctx context.Context, ids []domain.PersonID, window domain.Interval) (map[domain.PersonID][]domain.Interval, error) {
	body := freeBusyRequest{
		TimeMin: window.Start.UTC().Format(time.RFC3339),
		TimeMax: window.End.UTC().Format(time.RFC3339),
		Items:   make([]freeBusyItem, 0, len(ids)),
	}
	for _, id := range ids {
		body.Items = append(body.Items, freeBusyItem{ID: string(id)})
	}

	var payload freeBusyResponse
	if err := c.do(ctx, http.MethodPost, "freeBusy", nil, body, &payload); err != nil {
		return nil, fmt.Errorf("query free/busy: %w", err)
	}

	busy := make(map[domain.PersonID][]domain.Interval, len(ids))
	for _, id := range ids {
		calendar, ok := payload.Calendars[string(id)]
		if !ok {
			continue
		}
		for _, calErr := range calendar.Errors {
			c.logger.Warn("free/busy unavailable for calendar", "person", id, "reason", calErr.Reason)
		}
		for _, interval := range calendar.Busy {
			busy[id] = append(busy[id], domain.Interval{Start: interval.Start.UTC(), End: interval.End.UTC()})
		}
	}

	return busy, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventAttendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type eventBody struct {
	ID          string          `json:"id"`
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Start       eventTime       `json:"start"`
	End         eventTime       `json:"end"`
	Attendees   []eventAttendee `json:"attendees"`
}

func (c *Client) Create(ctx context.Context, event domain.EventRequest) error {
	if c.calendarID == "" {
		return fmt.Errorf("%w: calendar id is required to create events", domain.ErrInvalidConfig)
	}

	body := eventBody{
		ID:          event.ID,
		Summary:     event.Summary,
		Description: event.Description,
		Start:       eventTime{DateTime: event.Slot.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         eventTime{DateTime: event.Slot.End().UTC().Format(time.RFC3339), TimeZone: "UTC"},
		Attendees:   make([]eventAttendee, 0, len(event.Attendees)),
	}
	for _, person := range event.Attendees {
		body.Attendees = append(body.Attendees, eventAttendee{Email: string(person.ID), DisplayName: person.Name})
	}

	if err := c.mutations.Wait(ctx); err != nil {
		return err
	}

	path := "calendars/" + url.PathEscape(c.calendarID) + "/events"
	query := url.Values{"sendUpdates": {"all"}}
	if err := c.do(ctx, http.MethodPost, path, query, body, nil); err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}

	c.logger.Debug("calendar event created", "event_id", event.ID, "start", event.Slot.Start)
	return nil
}

func (c *Client) Subscribe(ctx context.Context, id domain.PersonID) error {
	if err := c.mutations.Wait(ctx); err != nil {
		return err
	}

	err := c.do(ctx, http.MethodPost, "users/me/calendarList", nil, map[string]string{"id": string(id)}, nil)
	var status *statusError
	if errors.As(err, &status) && status.code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("subscribe calendar %s: %w", id, err)
	}
	return nil
}

type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

func (e *statusError) Unwrap() error {
	return domain.ErrProvider
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrProvider, method, endpoint.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeStatusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrProvider, endpoint.Path, err)
	}
	return nil
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	if c.tokenRef == "" {
		return "", nil
	}
	if c.token != "" {
		return c.token, nil
	}

	token, err := c.secrets.Get(ctx, c.tokenRef)
	if err != nil {
		return "", fmt.Errorf("read calendar token: %w", err)
	}
	c.token = strings.TrimSpace(token)
	return c.token, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func decodeStatusError(resp *http.Response) error {
	var payload apiErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return &statusError{code: resp.StatusCode}
	}
	return &statusError{code: resp.StatusCode, message: payload.Error.Message}
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: calendar base url is required", domain.ErrInvalidConfig)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse calendar base url: %v", domain.ErrInvalidConfig, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: calendar base url must use http or https", domain.ErrInvalidConfig)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: calendar base url host is required", domain.ErrInvalidConfig)
	}

	return parsed, nil
}
