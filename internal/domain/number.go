package domain

import (
	"math"
	"strconv"
	"strings"
)

// MaxCount é o maior estoque ou quantidade aceito (colunas INTEGER do banco).
const MaxCount = math.MaxInt32

// ParseCount converte um inteiro em texto; false quando não é inteiro
// ou está fora de [-MaxCount, MaxCount].
func ParseCount(s string) (int, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n > MaxCount || n < -MaxCount {
		return 0, false
	}
	return int(n), true
}

// ParseCountNumber é como ParseCount, mas aceita também números JSON
// com parte fracionária nula (5.0, 1e1).
func ParseCountNumber(s string) (int, bool) {
	if n, ok := ParseCount(s); ok {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > MaxCount {
		return 0, false
	}
	return int(f), true
}

// PageOffset calcula (page-1)*perPage; false quando o resultado passa de MaxCount.
func PageOffset(page, perPage int) (int, bool) {
	if page < 1 || perPage < 1 {
		return 0, true
	}
	if page-1 > MaxCount/perPage {
		return 0, false
	}
	return (page - 1) * perPage, true
}
