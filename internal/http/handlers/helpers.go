package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const civilDateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseDateRange reads dateFrom/dateTo civil dates and widens them to cover
// the whole days: from midnight on dateFrom to the last second of dateTo.
// Both empty means no range was requested and zero times come back.
func parseDateRange(dateFrom, dateTo string) (time.Time, time.Time, error) {
	if dateFrom == "" && dateTo == "" {
		return time.Time{}, time.Time{}, nil
	}
	from, err := time.Parse(civilDateLayout, dateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("dateFrom must be YYYY-MM-DD")
	}
	to, err := time.Parse(civilDateLayout, dateTo)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("dateTo must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("dateTo is before dateFrom")
	}
	return from, to.Add(24*time.Hour - time.Second), nil
}
