package pointconfig

import "math/big"

// cloneRows deep-copies the selected rows of m.
func cloneRows(m [][]*big.Int, rows []int) [][]*big.Int {
	out := make([][]*big.Int, len(rows))
	for i, r := range rows {
		out[i] = make([]*big.Int, len(m[r]))
		for j, v := range m[r] {
			out[i][j] = new(big.Int).Set(v)
		}
	}
	return out
}

// determinant computes the determinant of the square integer matrix a with
// Bareiss' fraction-free elimination. a is modified in place.
func determinant(a [][]*big.Int) *big.Int {
	n := len(a)
	if n == 0 {
		return big.NewInt(1)
	}
	sign := 1
	prev := big.NewInt(1)
	t1, t2 := new(big.Int), new(big.Int)

	for k := 0; k < n-1; k++ {
		if a[k][k].Sign() == 0 {
			swap := -1
			for i := k + 1; i < n; i++ {
				if a[i][k].Sign() != 0 {
					swap = i
					break
				}
			}
			if swap < 0 {
				return new(big.Int)
			}
			a[k], a[swap] = a[swap], a[k]
			sign = -sign
		}
		for i := k + 1; i < n; i++ {
			for j := k + 1; j < n; j++ {
				t1.Mul(a[i][j], a[k][k])
				t2.Mul(a[i][k], a[k][j])
				t1.Sub(t1, t2)
				a[i][j].Quo(t1, prev)
			}
		}
		prev = a[k][k]
	}
	det := new(big.Int).Set(a[n-1][n-1])
	if sign < 0 {
		det.Neg(det)
	}
	return det
}

// rank computes the rank of the integer matrix a by fraction-free row
// reduction. a is modified in place.
func rank(a [][]*big.Int) int {
	rows := len(a)
	if rows == 0 {
		return 0
	}
	cols := len(a[0])
	r := 0
	t1, t2 := new(big.Int), new(big.Int)

	for c := 0; c < cols && r < rows; c++ {
		pivot := -1
		for i := r; i < rows; i++ {
			if a[i][c].Sign() != 0 {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			continue
		}
		a[r], a[pivot] = a[pivot], a[r]
		for i := r + 1; i < rows; i++ {
			if a[i][c].Sign() == 0 {
				continue
			}
			for j := c + 1; j < cols; j++ {
				t1.Mul(a[i][j], a[r][c])
				t2.Mul(a[i][c], a[r][j])
				a[i][j].Sub(t1, t2)
			}
			a[i][c].SetInt64(0)
		}
		r++
	}
	return r
}
