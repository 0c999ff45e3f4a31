package regress

import "fmt"

// MinMaxScaler maps each column into [0,1] using the bounds observed at fit
// time. Columns without variance collapse to 0.
type MinMaxScaler struct {
	mins   []float64
	ranges []float64
}

func (s *MinMaxScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("scaler: no rows")
	}

	width := len(rows[0])
	mins := make([]float64, width)
	maxs := make([]float64, width)
	copy(mins, rows[0])
	copy(maxs, rows[0])

	for _, row := range rows[1:] {
		if len(row) != width {
			return fmt.Errorf("scaler: ragged row width %d, want %d", len(row), width)
		}
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}

	ranges := make([]float64, width)
	for j := range ranges {
		ranges[j] = maxs[j] - mins[j]
	}

	s.mins = mins
	s.ranges = ranges

	return nil
}

func (s *MinMaxScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.mins) {
		return nil, fmt.Errorf("scaler: row width %d, want %d", len(row), len(s.mins))
	}

	out := make([]float64, len(row))
	for j, v := range row {
		if s.ranges[j] == 0 {
			out[j] = 0
			continue
		}
		out[j] = (v - s.mins[j]) / s.ranges[j]
	}

	return out, nil
}

func (s *MinMaxScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// Inverse maps one scaled column value back to the original range.
func (s *MinMaxScaler) Inverse(column int, value float64) (float64, error) {
	if column < 0 || column >= len(s.mins) {
		return 0, fmt.Errorf("scaler: column %d out of range", column)
	}
	return value*s.ranges[column] + s.mins[column], nil
}
