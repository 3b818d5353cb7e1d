package influx

import (
	"fmt"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/soilwatch/internal/storage"
)

var (
	fluxMinTime = time.Unix(0, 0).UTC()
	// range() needs a stop; device clocks may run ahead of ours.
	fluxMaxTime = time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)
)

// BuildFlux renders q as a Flux query returning one row per reading, most
// recent first. range() has an exclusive stop, so an inclusive End moves by 1ns.
func BuildFlux(bucket, measurement string, q storage.ReadingQuery) string {
	start, stop := fluxMinTime, fluxMaxTime
	if q.Start != nil {
		start = q.Start.UTC()
	}
	if q.End != nil {
		stop = q.End.UTC().Add(time.Nanosecond)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", start.Format(time.RFC3339Nano), stop.Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", fluxString(measurement))
	if q.PotID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.pot_id == %s)\n", fluxString(q.PotID))
	}
	if q.Category != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.risk_category == %s)\n", fluxString(string(q.Category)))
	}
	b.WriteString("  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")\n")
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"], desc: true)\n")
	return b.String()
}

var fluxEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "${", `\${`)

func fluxString(s string) string {
	return `"` + fluxEscaper.Replace(s) + `"`
}
