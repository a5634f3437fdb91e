package curve

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cdi-tuner.klederson.com/internal/grid"
)

// WriteCSV writes the set as "rpm,map1[,map2]" rows preceded by pickup and
// limiter comment lines.
func WriteCSV(w io.Writer, s *Set) error {
	cw := csv.NewWriter(w)

	if _, err := fmt.Fprintf(w, "# pickup=%.1f\n", s.Pickup); err != nil {
		return err
	}
	limiters := make([]string, len(s.Maps))
	for i, m := range s.Maps {
		limiters[i] = strconv.Itoa(m.Limiter)
	}
	if _, err := fmt.Fprintf(w, "# limiter=%s\n", strings.Join(limiters, ",")); err != nil {
		return err
	}

	header := []string{"rpm"}
	for i := range s.Maps {
		header = append(header, fmt.Sprintf("map%d", i+1))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < grid.Count; i++ {
		row := []string{strconv.Itoa(grid.RPM(i))}
		for _, m := range s.Maps {
			row = append(row, strconv.FormatFloat(m.Curve[i], 'f', 1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV into a Payload. The payload still
// has to go through Set.Apply for clamping and length checks.
func ReadCSV(r io.Reader) (Payload, error) {
	var p Payload
	data, err := io.ReadAll(r)
	if err != nil {
		return p, err
	}

	var limiters []int
	var body strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "# pickup="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(trimmed, "# pickup="), 64)
			if err != nil {
				return p, fmt.Errorf("csv pickup: %w", err)
			}
			p.Pickup = v
		case strings.HasPrefix(trimmed, "# limiter="):
			for _, f := range strings.Split(strings.TrimPrefix(trimmed, "# limiter="), ",") {
				v, err := strconv.Atoi(strings.TrimSpace(f))
				if err != nil {
					return p, fmt.Errorf("csv limiter: %w", err)
				}
				limiters = append(limiters, v)
			}
		case strings.HasPrefix(trimmed, "#"), trimmed == "":
		default:
			body.WriteString(trimmed)
			body.WriteByte('\n')
		}
	}

	records, err := csv.NewReader(strings.NewReader(body.String())).ReadAll()
	if err != nil {
		return p, fmt.Errorf("csv body: %w", err)
	}
	if len(records) < 2 || len(records[0]) < 2 || records[0][0] != "rpm" {
		return p, fmt.Errorf("csv: missing rpm header")
	}
	nMaps := len(records[0]) - 1
	if len(limiters) != nMaps {
		return p, fmt.Errorf("%w: %d limiters for %d maps", ErrMapCount, len(limiters), nMaps)
	}

	p.Maps = make([]MapPayload, nMaps)
	for n := range p.Maps {
		p.Maps[n].Limiter = limiters[n]
	}
	for _, rec := range records[1:] {
		for n := 0; n < nMaps; n++ {
			v, err := strconv.ParseFloat(rec[n+1], 64)
			if err != nil {
				return p, fmt.Errorf("csv rpm %s: %w", rec[0], err)
			}
			p.Maps[n].Curve = append(p.Maps[n].Curve, v)
		}
	}
	return p, nil
}
