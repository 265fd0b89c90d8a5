package sheets

import "context"

// Row is one contact submission in header column order:
// created at, name, email, phone, handle.
type Row [5]string

// Backend opens connections to a spreadsheet.
type Backend interface {
	// Check reports missing configuration without performing any I/O.
	Check() error
	// Open authenticates and returns a Service bound to one spreadsheet.
	Open(ctx context.Context) (Service, error)
}

// Service is one open connection to a spreadsheet. Writes use user-entered
// semantics: date-like text is stored as a date.
type Service interface {
	Values(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, rows [][]string) error
	Append(ctx context.Context, rng string, rows [][]string) error
	// Format applies layout to the sheet titled title ("" is the first
	// sheet) in a single batch.
	Format(ctx context.Context, title string, layout Layout) error
	Close() error
}
