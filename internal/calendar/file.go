// v0
// internal/calendar/file.go
package calendar

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileProvider reads holidays from a text file with one YYYY-MM-DD per line.
// An optional region column ("2023-12-25 england") restricts the entry to that
// region; lines starting with '#' are ignored.
type FileProvider struct {
	Path string
}

// Holidays implements Provider.
func (p FileProvider) Holidays(ctx context.Context, region string, from, to time.Time) (HolidaySet, error) {
	f, err := os.Open(filepath.Clean(p.Path))
	if err != nil {
		return HolidaySet{}, fmt.Errorf("cannot open holiday file: %w", err)
	}
	defer f.Close()

	var dates []time.Time
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return HolidaySet{}, err
		}
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		fields := strings.Fields(raw)
		if len(fields) > 1 && region != "" && !strings.EqualFold(fields[1], region) {
			continue
		}
		d, err := time.Parse(dateLayout, fields[0])
		if err != nil {
			return HolidaySet{}, fmt.Errorf("line %d: %w", line, err)
		}
		dates = append(dates, d)
	}
	if err := scanner.Err(); err != nil {
		return HolidaySet{}, fmt.Errorf("read holiday file: %w", err)
	}
	return NewHolidaySet(dates...).Within(from, to), nil
}
