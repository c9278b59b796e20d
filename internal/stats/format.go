package stats

import (
	"fmt"
	"strings"
)

// Format renders one band's statistics as a multi-line block for
// single-file qaqc output.
func (s *RasterStats) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "┌─ Band: %s (%s)\n", s.Name, s.DType)
	fmt.Fprintf(&b, "├─ Statistics:\n")
	fmt.Fprintf(&b, "│  • Mean:     %12.6f\n", s.Mean)
	fmt.Fprintf(&b, "│  • Min:      %12.6f\n", s.Min)
	fmt.Fprintf(&b, "│  • Max:      %12.6f\n", s.Max)
	fmt.Fprintf(&b, "│  • Std Dev:  %12.6f\n", s.Stdev)
	fmt.Fprintf(&b, "│  • Variance: %12.6f\n", s.Variance)
	fmt.Fprintf(&b, "│  • CV:       %12.6f\n", s.CV)

	if s.HasQuantiles() {
		fmt.Fprintf(&b, "├─ Quantiles:\n")
		fmt.Fprintf(&b, "│  • Q1:       %12.6f\n", *s.Q1)
		fmt.Fprintf(&b, "│  • Median:   %12.6f\n", *s.Median)
		fmt.Fprintf(&b, "│  • Q3:       %12.6f\n", *s.Q3)
	}

	fmt.Fprintf(&b, "└─ Data Info:\n")
	fmt.Fprintf(&b, "   • Valid:    %12d (%6.1f%%)\n", s.ValidCount, s.PercentValid)
	fmt.Fprintf(&b, "   • NoData:   %12d\n", s.NodataCount)
	fmt.Fprintf(&b, "   • NaN:      %12d\n", s.NaNCount)

	return b.String()
}

// FormatAll renders the statistics of every band of one file, separated
// by blank lines.
func FormatAll(all []RasterStats) string {
	if len(all) == 0 {
		return "No band statistics to display.\n"
	}

	var b strings.Builder
	b.WriteString("Raster Statistics\n")
	for i := range all {
		b.WriteString(all[i].Format())
		if i < len(all)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
