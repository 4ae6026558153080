package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smartlms/remindbot/internal/logger"
)

const (
	CodeBlocked = "blocked" // the recipient revoked delivery permission
	CodeUnknown = "unknown"

	defaultBaseURL = "https://api.telegram.org"

	// Long enough to cover a 30 second getUpdates long poll
	defaultTimeout = 35 * time.Second
)

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, error: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

type Config struct {
	// Bot API token
	Token string

	// Override for tests, defaults to the public Bot API
	BaseURL string

	Timeout time.Duration
}

// Client is a thin Bot API client: message delivery with optional inline
// keyboards, update long polling, callback acknowledgement
type Client struct {
	apiURL string

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, logger logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		apiURL: cfg.BaseURL + "/bot" + cfg.Token,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// InlineButton is one button of a single-column inline keyboard
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// SendMessage delivers an HTML-formatted message to the chat
//
// A recipient that blocked the bot surfaces as Error with CodeBlocked,
// the caller is expected to stop sending to them.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, buttons ...InlineButton) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if len(buttons) > 0 {
		payload["reply_markup"] = inlineKeyboard(buttons)
	}

	return c.call(ctx, "sendMessage", payload, nil)
}

// EditMessageButtons replaces the inline keyboard of an already sent message
func (c *Client) EditMessageButtons(ctx context.Context, chatID int64, messageID int64, buttons ...InlineButton) error {
	payload := map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": inlineKeyboard(buttons),
	}

	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

// AnswerCallback acknowledges an inline button press
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

// GetUpdates long polls for updates after the given offset
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":  offset,
		"timeout": int(timeout / time.Second),
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// apiResponse is the envelope every Bot API method answers with
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return NewError(CodeUnknown, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return NewError(CodeUnknown, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(CodeUnknown, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return NewError(CodeUnknown, fmt.Errorf("failed to decode response: %w", err))
	}

	if !envelope.OK {
		code := CodeUnknown
		if envelope.ErrorCode == http.StatusForbidden {
			code = CodeBlocked
		}

		c.logger.Warn("Bot API call failed", "method", method, "error_code", envelope.ErrorCode, "description", envelope.Description)
		return NewError(code, fmt.Errorf("%s: %s (code %d)", method, envelope.Description, envelope.ErrorCode))
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return NewError(CodeUnknown, fmt.Errorf("failed to decode result: %w", err))
		}
	}

	return nil
}

func inlineKeyboard(buttons []InlineButton) map[string]any {
	rows := make([][]InlineButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineButton{b})
	}

	return map[string]any{"inline_keyboard": rows}
}
