package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/odelab/internal/analysis"
	"github.com/san-kum/odelab/internal/dynamo"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes x,y and, with a comparison, reference,abs_diff columns.
func WriteCSV(w io.Writer, traj dynamo.Trajectory, cmp *analysis.Comparison) error {
	if cmp != nil && len(cmp.Reference) != len(traj) {
		return fmt.Errorf("%w: %d points, %d reference values", dynamo.ErrDomainMismatch, len(traj), len(cmp.Reference))
	}

	cw := csv.NewWriter(w)
	header := []string{"x", "y"}
	if cmp != nil {
		header = append(header, "reference", "abs_diff")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, p := range traj {
		row := []string{formatFloat(p.X), formatFloat(p.Y)}
		if cmp != nil {
			row = append(row, formatFloat(cmp.Reference[i]), formatFloat(cmp.AbsDiff[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (dynamo.Trajectory, []float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty trajectory file")
	}

	hasRef := len(records[0]) >= 3 && records[0][2] == "reference"
	traj := make(dynamo.Trajectory, 0, len(records)-1)
	var ref []float64

	for i, record := range records[1:] {
		vals, err := parseRow(record)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if len(vals) < 2 {
			return nil, nil, fmt.Errorf("row %d: expected x,y", i+2)
		}
		traj = append(traj, dynamo.Point{X: vals[0], Y: vals[1]})
		if hasRef && len(vals) >= 3 {
			ref = append(ref, vals[2])
		}
	}

	return traj, ref, nil
}

// WriteStatesCSV writes time,x0,x1,... rows.
func WriteStatesCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)

	if len(result.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{formatFloat(result.Times[i])}
		for _, val := range result.States[i] {
			row = append(row, formatFloat(val))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadStatesCSV(r io.Reader) ([]dynamo.State, []float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	states := make([]dynamo.State, 0, len(records))
	times := make([]float64, 0, len(records))

	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue
		}
		vals, err := parseRow(record)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		times = append(times, vals[0])
		states = append(states, dynamo.State(vals[1:]))
	}

	return states, times, nil
}

func parseRow(record []string) ([]float64, error) {
	vals := make([]float64, len(record))
	for j, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		vals[j] = v
	}
	return vals, nil
}

type ExportData struct {
	Meta      RunMetadata `json:"meta"`
	Xs        []float64   `json:"xs"`
	Ys        []float64   `json:"ys"`
	Reference []float64   `json:"reference,omitempty"`
	AbsDiff   []float64   `json:"abs_diff,omitempty"`
}

func ExportJSON(w io.Writer, meta RunMetadata, traj dynamo.Trajectory, cmp *analysis.Comparison) error {
	data := ExportData{
		Meta: meta,
		Xs:   traj.Xs(),
		Ys:   traj.Ys(),
	}
	if cmp != nil {
		data.Reference = cmp.Reference
		data.AbsDiff = cmp.AbsDiff
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
