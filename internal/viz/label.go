package viz

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jengzang/caseheat-backend-go/internal/models"
)

// FormatLabel renders a timestamp as "YYYY/M" in UTC
func FormatLabel(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	return fmt.Sprintf("%d/%d", t.Year(), int(t.Month()))
}

// FormatTooltip renders the hover text of a timeline point
func FormatTooltip(p models.TemporalPoint) string {
	t := time.UnixMilli(p.Timestamp).UTC()
	return fmt.Sprintf("Time: %s\nNumberCases: %d", t.Format(http.TimeFormat), p.Weight)
}
