package sheets

import (
	"fmt"
	"math"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	Red, Green, Blue float64
}

// Hex renders c as RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", channel(c.Red), channel(c.Green), channel(c.Blue))
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// Palette is cycled across header columns.
var Palette = []Color{
	{Red: 0.98, Green: 0.91, Blue: 0.67}, // yellow
	{Red: 0.82, Green: 0.95, Blue: 0.82}, // mint
	{Red: 0.75, Green: 0.86, Blue: 0.98}, // blue
	{Red: 0.98, Green: 0.81, Blue: 0.90}, // pink
	{Red: 0.87, Green: 0.84, Blue: 0.99}, // lilac
}

// HeaderForeground is the dark text color of header cells.
var HeaderForeground = Color{Red: 0.12, Green: 0.15, Blue: 0.2}

// ColumnWidths are pixel widths for columns A..E.
var ColumnWidths = []int64{180, 200, 260, 180, 180}

// DateTimePattern formats column A from row 2 down.
const DateTimePattern = "yyyy-mm-dd hh:mm"

// DefaultHeaders label the five columns of a contact row.
var DefaultHeaders = []string{"Created", "Name", "Email", "Phone", "Telegram"}

// ColumnStyle is the header style of one column. Width 0 leaves the width to
// auto-resize.
type ColumnStyle struct {
	Background Color
	Width      int64
}

// Layout is the formatting applied by one initialization batch. Backends
// translate it into their own requests.
type Layout struct {
	Columns     []ColumnStyle
	Foreground  Color
	Bold        bool
	FrozenRows  int64
	DateColumn  int64
	DatePattern string
	AutoResize  bool
}

// HeaderLayout builds the layout for n header columns.
func HeaderLayout(n int) Layout {
	cols := make([]ColumnStyle, n)
	for i := range cols {
		cols[i].Background = Palette[i%len(Palette)]
		if i < len(ColumnWidths) {
			cols[i].Width = ColumnWidths[i]
		}
	}
	return Layout{
		Columns:     cols,
		Foreground:  HeaderForeground,
		Bold:        true,
		FrozenRows:  1,
		DateColumn:  0,
		DatePattern: DateTimePattern,
		AutoResize:  true,
	}
}
