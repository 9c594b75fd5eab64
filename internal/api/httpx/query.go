package httpx

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
)

const dateLayout = "2006-01-02"

// IntParam lê um inteiro opcional; ausente devolve def.
// Valor não numérico é NumberFormatError; a faixa é validada pelo serviço.
func IntParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewNumberFormatError(name, raw)
	}
	return n, nil
}

// OptionalIntParam é como IntParam, mas devolve nil quando ausente.
func OptionalIntParam(q url.Values, name string) (*int, error) {
	if strings.TrimSpace(q.Get(name)) == "" {
		return nil, nil
	}
	n, err := IntParam(q, name, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// TimeParam aceita YYYY-MM-DD ou RFC3339. Com endOfDay, uma data simples
// cobre o dia inteiro.
func TimeParam(q url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, apperror.NewValidationError("invalid date for " + name + ": expected YYYY-MM-DD or RFC3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// RestockFilter monta o filtro do histórico a partir da query string.
func RestockFilter(q url.Values) (domain.RestockFilter, error) {
	var (
		filter domain.RestockFilter
		err    error
	)

	filter.ProductID = strings.TrimSpace(q.Get("product"))
	if filter.From, err = TimeParam(q, "date_from", false); err != nil {
		return filter, err
	}
	if filter.To, err = TimeParam(q, "date_to", true); err != nil {
		return filter, err
	}
	if filter.MinQuantity, err = OptionalIntParam(q, "min_quantity"); err != nil {
		return filter, err
	}
	if filter.MaxQuantity, err = OptionalIntParam(q, "max_quantity"); err != nil {
		return filter, err
	}
	return filter, nil
}
