package scheduling

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/KentSpendy/BukCare/pkg/types"
)

var historyCSVHeader = []string{"Patient Email", "Date", "Time", "Status", "Triage", "Reason"}

// renderHistoryCSV renders concluded appointments as a CSV document
func renderHistoryCSV(history []*types.Appointment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(historyCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, apt := range history {
		row := []string{
			apt.PatientEmail,
			apt.Date,
			apt.StartTime,
			string(apt.Status),
			string(apt.TriageStatus),
			apt.Reason,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}
