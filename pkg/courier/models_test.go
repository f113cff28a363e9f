package courier_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/courierhub/pkg/courier"
)

func TestQuotation_IsValid(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	future := now.Add(15 * time.Minute)
	past := now.Add(-time.Second)

	tests := []struct {
		name string
		q    courier.Quotation
		want bool
	}{
		{
			name: "valid with future expiry",
			q:    courier.Quotation{Valid: true, ExpiresAt: &future},
			want: true,
		},
		{
			name: "valid with no expiry",
			q:    courier.Quotation{Valid: true},
			want: true,
		},
		{
			name: "consumed quotation is invalid regardless of expiry",
			q:    courier.Quotation{Valid: false, ExpiresAt: &future},
			want: false,
		},
		{
			name: "expired quotation",
			q:    courier.Quotation{Valid: true, ExpiresAt: &past},
			want: false,
		},
		{
			name: "expiry boundary is exclusive",
			q:    courier.Quotation{Valid: true, ExpiresAt: &now},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.IsValid(now))
		})
	}
}

func TestQuotation_IsValid_Nil(t *testing.T) {
	var q *courier.Quotation
	assert.False(t, q.IsValid(time.Now()))
}
