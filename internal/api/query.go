package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/engine"
)

// queryInt returns def when key is absent or not a number.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryList accepts both repeated keys and comma separated values.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(r *http.Request, key string) (*bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &b, nil
}

// queryTime accepts RFC 3339 timestamps and plain dates.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	return parseTime(key, r.URL.Query().Get(key))
}

func parseTime(key, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", key)
	}
	return &t, nil
}

// queryTimeEnd is queryTime for upper bounds: a plain date covers the
// whole day.
func queryTimeEnd(r *http.Request, key string) (*time.Time, error) {
	return parseTimeEnd(key, r.URL.Query().Get(key))
}

func parseTimeEnd(key, v string) (*time.Time, error) {
	t, err := parseTime(key, v)
	if err != nil || t == nil {
		return t, err
	}
	if len(v) == len(time.DateOnly) {
		end := engine.DayEnd(*t)
		return &end, nil
	}
	return t, nil
}
