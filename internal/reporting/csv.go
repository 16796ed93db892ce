// Package reporting renders pipeline outputs as CSV in the same
// European conventions as the input files: ';' field separator, ','
// decimal point.
package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ferranfont/AI-random-forest/internal/domain"
)

// csvTimestampLayout writes microsecond precision, the resolution the
// raw exports carry.
const csvTimestampLayout = "2006-01-02 15:04:05.000000"

// RenderProcessedCSV renders the processed feature table. Column set
// and order match the historical processing script's output, including
// the original Spanish tick columns.
func RenderProcessedCSV(rows []*domain.ProcessedTick) string {
	var sb strings.Builder
	sb.WriteString("Timestamp;Precio;Volumen;Lado;Bid;Ask;window_vol;tps_window;factor_tps\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s;%s;%s;%s;%s;%s;%s;%s;%s\n",
			r.Timestamp.Format(csvTimestampLayout),
			formatOptional(r.Price),
			formatOptional(r.Volume),
			r.Side,
			formatOptional(r.Bid),
			formatOptional(r.Ask),
			formatEuro(r.WindowVol),
			formatEuro(r.TPSWindow),
			formatEuro(r.FactorTPS),
		))
	}
	return sb.String()
}

// RenderSignalsCSV renders detected signals in the forward-test export
// format consumed by the charting tooling.
func RenderSignalsCSV(signals []*domain.Signal) string {
	var sb strings.Builder
	sb.WriteString("timestamp;price;factor_tps;prob_initiation;price_velocity_5\n")

	for _, s := range signals {
		sb.WriteString(fmt.Sprintf("%s;%s;%s;%s;%s\n",
			s.Timestamp.Format(csvTimestampLayout),
			formatEuro(s.Price),
			formatEuro(s.FactorTPS),
			formatEuro(s.Probability),
			formatEuro(s.PriceVelocity),
		))
	}
	return sb.String()
}

// formatEuro formats a float with ',' as the decimal separator.
func formatEuro(v float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(v, 'f', -1, 64), ".", ",")
}

// formatOptional renders a nullable numeric; nil becomes an empty cell.
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatEuro(*v)
}

// ParseExportTimestamp parses a timestamp written by this package.
// Exposed for round-trip tests and downstream tools.
func ParseExportTimestamp(s string) (time.Time, error) {
	return time.Parse(csvTimestampLayout, s)
}
