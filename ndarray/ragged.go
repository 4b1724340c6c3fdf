package ndarray

// NewRagged builds a 1-D ObjectVLen64 array from variable-length rows.
// Each row is an independent int64 sequence; rows may differ in length.
func NewRagged(rows [][]int64) *Array {
	data := make([][]int64, len(rows))
	copy(data, rows)

	return &Array{
		shape: []int{len(rows)},
		dtype: ObjectVLen64,
		data:  data,
	}
}

// SetRow assigns a single row of a ragged array.
func (a *Array) SetRow(i int, row []int64) bool {
	rows, ok := a.data.([][]int64)
	if !ok || i < 0 || i >= len(rows) {
		return false
	}
	rows[i] = row

	return true
}

// Row returns one row of a ragged array.
func (a *Array) Row(i int) ([]int64, bool) {
	rows, ok := a.data.([][]int64)
	if !ok || i < 0 || i >= len(rows) {
		return nil, false
	}

	return rows[i], true
}
