package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"docdesk/internal/desk"
)

// ErrRemote marks a failure reported by, or in reaching, the endpoint.
var ErrRemote = errors.New("endpoint error")

// Client talks to the spreadsheet-backed scripting endpoint over HTTP.
// Reads are GET requests with a sheet query parameter; writes are POSTed
// JSON bodies selecting an action.
type Client struct {
	endpoint   string
	httpClient *http.Client
	clock      desk.Clock
}

// NewClient creates a Client for the endpoint URL.
func NewClient(endpoint string, timeout time.Duration, clock desk.Clock) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
	}
}

// response is the common envelope of every endpoint answer.
type response struct {
	Success  bool              `json:"success"`
	Data     []json.RawMessage `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
	Message  string            `json:"message,omitempty"`
	SerialNo json.RawMessage   `json:"serialNo,omitempty"`
	FileURL  string            `json:"fileUrl,omitempty"`
}

func (r *response) err() error {
	if r.Success {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = r.Message
	}
	if msg == "" {
		msg = "request was not successful"
	}
	return fmt.Errorf("%w: %s", ErrRemote, msg)
}

// FetchRows returns every row of sheet, header included. A cache-busting
// timestamp is always sent.
func (c *Client) FetchRows(ctx context.Context, sheet string, query map[string]string) ([][]string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint URL: %w", err)
	}
	q := u.Query()
	q.Set("sheet", sheet)
	for k, v := range query {
		q.Set(k, v)
	}
	q.Set("t", strconv.FormatInt(c.clock.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(resp.Data))
	for i, raw := range resp.Data {
		row, err := decodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d of %s: %v", ErrRemote, i, sheet, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type insertRequest struct {
	Action    string   `json:"action"`
	SheetName string   `json:"sheetName"`
	Data      []string `json:"data"`
}

// Insert appends row to sheet and returns the serial number the endpoint
// assigned, if it reported one.
func (c *Client) Insert(ctx context.Context, sheet string, row []string) (*desk.InsertResult, error) {
	resp, err := c.post(ctx, insertRequest{Action: "insert", SheetName: sheet, Data: row})
	if err != nil {
		return nil, err
	}
	return &desk.InsertResult{SerialNo: rawString(resp.SerialNo)}, nil
}

type uploadRequest struct {
	Action   string `json:"action"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileData string `json:"fileData"`
	FolderID string `json:"folderId"`
}

// Upload sends a base64-encoded file to the endpoint's uploadFile action and
// returns the stored file's URL.
func (c *Client) Upload(ctx context.Context, file desk.FileUpload) (string, error) {
	resp, err := c.post(ctx, uploadRequest{
		Action:   "uploadFile",
		FileName: file.FileName,
		MimeType: file.MimeType,
		FileData: base64.StdEncoding.EncodeToString(file.Content),
		FolderID: file.FolderID,
	})
	if err != nil {
		return "", err
	}
	if resp.FileURL == "" {
		return "", fmt.Errorf("%w: upload of %s returned no file URL", ErrRemote, file.FileName)
	}
	return resp.FileURL, nil
}

type emailRequest struct {
	Action   string `json:"action"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
	Body     string `json:"body"`
}

// SendEmail asks the endpoint to deliver msg.
func (c *Client) SendEmail(ctx context.Context, msg desk.EmailMessage) error {
	_, err := c.post(ctx, emailRequest{
		Action:   "sendEmail",
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		Body:     msg.TextBody,
	})
	return err
}

func (c *Client) post(ctx context.Context, payload any) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, truncate(string(body), 200))
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRemote, err)
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// decodeRow turns a JSON array of cells into strings. Numbers keep their
// shortest form, null becomes "".
func decodeRow(raw json.RawMessage) ([]string, error) {
	var cells []any
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, err
	}
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = cellString(c)
	}
	return row, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// rawString reads a JSON value that may be a string or a number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return cellString(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Compile-time checks that Client satisfies the service ports
var (
	_ desk.Remote       = (*Client)(nil)
	_ desk.FileUploader = (*Client)(nil)
)
