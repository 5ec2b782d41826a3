package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cromashop/croma/internal/models"
)

func TestFormatEuros(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00 €"},
		{5, "0.05 €"},
		{4500, "45.00 €"},
		{10001, "100.01 €"},
		{-1000, "-10.00 €"},
	}

	for _, tt := range tests {
		if got := FormatEuros(tt.cents); got != tt.want {
			t.Errorf("FormatEuros(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestOrderNumber(t *testing.T) {
	t.Parallel()

	order := &models.Order{ID: uuid.MustParse("3f2a91b4-0000-4000-8000-000000000000")}
	got := OrderNumber(order)
	if got != "#3F2A91B4" {
		t.Errorf("OrderNumber() = %q, want #3F2A91B4", got)
	}
	if !strings.HasPrefix(got, "#") {
		t.Errorf("OrderNumber() = %q, want leading #", got)
	}
}
