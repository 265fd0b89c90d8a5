package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/timtanatarov/daydi-spa/internal/utils"
)

const valueInputOption = "USER_ENTERED"

// Credentials identify the service account and the target spreadsheet.
type Credentials struct {
	Email         string
	PrivateKey    string
	SpreadsheetID string
}

// Missing lists the environment names of absent credentials.
func (c Credentials) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY")
	}
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		missing = append(missing, "GOOGLE_SHEETS_ID")
	}
	return missing
}

// NormalizePrivateKey turns literal "\n" sequences, as stored in env files,
// into newlines.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// GoogleBackend talks to the Google Sheets API v4.
type GoogleBackend struct {
	Credentials Credentials

	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient, when set, is used as is instead of a service-account
	// client.
	HTTPClient *http.Client
}

func NewGoogleBackend(creds Credentials) *GoogleBackend {
	return &GoogleBackend{Credentials: creds}
}

func (b *GoogleBackend) Check() error {
	if missing := b.Credentials.Missing(); len(missing) > 0 {
		return utils.ConfigError("missing Google Sheets env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Open builds a Sheets service authenticated as the service account. Every
// call authenticates anew.
func (b *GoogleBackend) Open(ctx context.Context) (Service, error) {
	var opts []option.ClientOption
	if b.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(b.HTTPClient))
	} else {
		conf := &jwt.Config{
			Email:      b.Credentials.Email,
			PrivateKey: []byte(NormalizePrivateKey(b.Credentials.PrivateKey)),
			Scopes:     []string{sheetsapi.SpreadsheetsScope},
			TokenURL:   google.JWTTokenURL,
		}
		opts = append(opts, option.WithHTTPClient(conf.Client(ctx)))
	}
	if b.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(b.Endpoint))
	}

	api, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &googleService{api: api, spreadsheetID: b.Credentials.SpreadsheetID}, nil
}

type googleService struct {
	api           *sheetsapi.Service
	spreadsheetID string
}

func (s *googleService) Values(ctx context.Context, rng string) ([][]string, error) {
	resp, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				rows[i][j] = fmt.Sprint(v)
			}
		}
	}
	return rows, nil
}

func (s *googleService) Update(ctx context.Context, rng string, rows [][]string) error {
	_, err := s.api.Spreadsheets.Values.Update(s.spreadsheetID, rng, valueRange(rows)).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return err
}

func (s *googleService) Append(ctx context.Context, rng string, rows [][]string) error {
	_, err := s.api.Spreadsheets.Values.Append(s.spreadsheetID, rng, valueRange(rows)).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return err
}

func (s *googleService) Format(ctx context.Context, title string, layout Layout) error {
	sheetID, err := s.sheetID(ctx, title)
	if err != nil {
		return err
	}
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: FormatRequests(sheetID, layout)}
	_, err = s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *googleService) Close() error { return nil }

// sheetID resolves title to its numeric id. An empty title means the first
// sheet.
func (s *googleService) sheetID(ctx context.Context, title string) (int64, error) {
	meta, err := s.api.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}
	title = Unquote(title)
	for _, sh := range meta.Sheets {
		if sh.Properties == nil {
			continue
		}
		if title == "" || sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	if title == "" {
		return 0, fmt.Errorf("spreadsheet %s has no sheets", s.spreadsheetID)
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet %s", title, s.spreadsheetID)
}

func valueRange(rows [][]string) *sheetsapi.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return &sheetsapi.ValueRange{Values: values}
}

func apiColor(c Color) *sheetsapi.Color {
	return &sheetsapi.Color{Red: c.Red, Green: c.Green, Blue: c.Blue}
}

// FormatRequests translates layout into batchUpdate requests for sheetID.
func FormatRequests(sheetID int64, layout Layout) []*sheetsapi.Request {
	var requests []*sheetsapi.Request
	n := int64(len(layout.Columns))

	for i, col := range layout.Columns {
		idx := int64(i)
		requests = append(requests, &sheetsapi.Request{
			RepeatCell: &sheetsapi.RepeatCellRequest{
				Range: &sheetsapi.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: idx,
					EndColumnIndex:   idx + 1,
				},
				Cell: &sheetsapi.CellData{
					UserEnteredFormat: &sheetsapi.CellFormat{
						TextFormat: &sheetsapi.TextFormat{
							Bold:            layout.Bold,
							ForegroundColor: apiColor(layout.Foreground),
						},
						BackgroundColor:     apiColor(col.Background),
						HorizontalAlignment: "LEFT",
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor,horizontalAlignment)",
			},
		})
	}

	if layout.FrozenRows > 0 {
		requests = append(requests, &sheetsapi.Request{
			UpdateSheetProperties: &sheetsapi.UpdateSheetPropertiesRequest{
				Properties: &sheetsapi.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheetsapi.GridProperties{FrozenRowCount: layout.FrozenRows},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		})
	}

	if layout.DatePattern != "" {
		requests = append(requests, &sheetsapi.Request{
			RepeatCell: &sheetsapi.RepeatCellRequest{
				Range: &sheetsapi.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    1,
					StartColumnIndex: layout.DateColumn,
					EndColumnIndex:   layout.DateColumn + 1,
				},
				Cell: &sheetsapi.CellData{
					UserEnteredFormat: &sheetsapi.CellFormat{
						NumberFormat: &sheetsapi.NumberFormat{Type: "DATE_TIME", Pattern: layout.DatePattern},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		})
	}

	if layout.AutoResize && n > 0 {
		requests = append(requests, &sheetsapi.Request{
			AutoResizeDimensions: &sheetsapi.AutoResizeDimensionsRequest{
				Dimensions: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   n,
				},
			},
		})
	}

	for i, col := range layout.Columns {
		if col.Width <= 0 {
			continue
		}
		idx := int64(i)
		requests = append(requests, &sheetsapi.Request{
			UpdateDimensionProperties: &sheetsapi.UpdateDimensionPropertiesRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: idx,
					EndIndex:   idx + 1,
				},
				Properties: &sheetsapi.DimensionProperties{PixelSize: col.Width},
				Fields:     "pixelSize",
			},
		})
	}

	return requests
}
