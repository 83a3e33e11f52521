package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"conti/internal/core"
	ports "conti/internal/sheets"
)

const lastColumn = "J"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID *int64
}

var _ ports.Exporter = (*Client)(nil)

// LoadCredentials returns the service account key from inline JSON or from
// a file, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// New creates a Sheets client authenticated with a service account key.
func New(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheetName)
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// Export writes the row of t over its existing row, or after the last row.
// An empty sheet gets the header first.
func (c *Client) Export(ctx context.Context, t core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if t.ID == "" {
		return "", errors.New("transaction without id")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	values := [][]any{toAny(ports.Row(t))}
	row := findRow(ids, t.ID)
	if row == 0 {
		row = len(ids) + 1
		if len(ids) == 0 {
			values = [][]any{toAny(ports.Header), values[0]}
		}
	}

	first := row
	if len(values) == 2 {
		row++
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, first, lastColumn, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row), nil
}

// Remove deletes the row holding id and shifts the rows below it up.
func (c *Client) Remove(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Transaction row not found, nothing to remove", "transaction_id", id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return firstColumn(resp.Values), nil
}

// lookupSheetID resolves the numeric id of the sheet once.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
