package protocol

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Validator is implemented by every component body with structural rules.
type Validator interface {
	Validate() error
}

func exactlyOne(what string, present ...bool) error {
	n := 0
	for _, p := range present {
		if p {
			n++
		}
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: %s: none provided", ErrOneOfViolation, what)
	default:
		return fmt.Errorf("%w: %s: %d provided", ErrOneOfViolation, what, n)
	}
}

func (m Method) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: method %s name", ErrMissingField, m.ID)
	}
	return nil
}

func (s Signal) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: signal %s name", ErrMissingField, s.ID)
	}
	return nil
}

func (p Plot) Validate() error {
	return exactlyOne("plot simple_plot/url_plot", p.SimplePlot != "", p.URLPlot != "")
}

func (b Buffer) Validate() error {
	return exactlyOne("buffer inline_bytes/uri_bytes", len(b.InlineBytes) > 0, b.URIBytes != "")
}

func (i Image) Validate() error {
	return exactlyOne("image buffer_source/uri_source", i.BufferSource != nil, i.URISource != "")
}

func (l Light) Validate() error {
	if len(l.Color) != 3 {
		log.Warn().Msgf("protocol.Light.Validate color is not RGB id=%s color=%v", l.ID, l.Color)
	}
	return exactlyOne("light point/spot/directional", l.Point != nil, l.Spot != nil, l.Directional != nil)
}

func (m Material) Validate() error {
	if m.PBRInfo != nil {
		return m.PBRInfo.Validate()
	}
	return nil
}

func (p PBRInfo) Validate() error {
	if len(p.BaseColor) != 4 {
		log.Warn().Msgf("protocol.PBRInfo.Validate base color is wrong color format: %v", p.BaseColor)
	}
	return nil
}

func (g Geometry) Validate() error {
	if g.Patches == nil {
		return fmt.Errorf("%w: geometry %s patches", ErrMissingField, g.ID)
	}
	return nil
}

func (c InvokeContext) Validate() error {
	return exactlyOne("context entity/table/plot", c.Entity != nil, c.Table != nil, c.Plot != nil)
}

// CoerceViewType maps non-conforming buffer view types onto UNK, GEOMETRY or IMAGE.
func CoerceViewType(raw string) string {
	switch raw {
	case ViewUnknown, ViewGeometry, ViewImage:
		return raw
	case "":
		return ViewUnknown
	}
	upper := strings.ToUpper(raw)
	out := ViewUnknown
	switch {
	case strings.Contains(upper, ViewGeometry):
		out = ViewGeometry
	case strings.Contains(upper, ViewImage):
		out = ViewImage
	}
	log.Warn().Msgf("protocol.CoerceViewType unknown buffer view type %q coerced to %q", raw, out)
	return out
}

// CellColumnType reports the column type a decoded table cell belongs to.
func CellColumnType(v any) (ColumnType, bool) {
	switch v.(type) {
	case string:
		return ColumnText, true
	case float32, float64:
		return ColumnReal, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ColumnInteger, true
	default:
		return "", false
	}
}

func (c TableColumnInfo) Validate() error {
	switch c.Type {
	case ColumnText, ColumnReal, ColumnInteger:
		return nil
	default:
		return fmt.Errorf("%w: column %q type %q", ErrInvalidColumnType, c.Name, c.Type)
	}
}

// Validate checks that every cell matches its column type.
func (t TableInitData) Validate() error {
	for _, col := range t.Columns {
		if err := col.Validate(); err != nil {
			return err
		}
	}
	if len(t.Keys) != len(t.Data) {
		return fmt.Errorf("%w: %d keys for %d rows", ErrColumnMismatch, len(t.Keys), len(t.Data))
	}
	return ValidateRows(t.Columns, t.Data)
}

// ValidateRows checks rows against column types. Cells past the last column are ignored.
func ValidateRows(cols []TableColumnInfo, rows [][]any) error {
	for r, row := range rows {
		for i, cell := range row {
			if i >= len(cols) {
				break
			}
			got, ok := CellColumnType(cell)
			if !ok || got != cols[i].Type {
				return fmt.Errorf("%w: row %d column %q want %s got %T", ErrColumnMismatch, r, cols[i].Name, cols[i].Type, cell)
			}
		}
	}
	return nil
}
