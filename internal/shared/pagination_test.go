package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		limit int
		total int
		want  Pagination
	}{
		{"exact multiple", 1, 10, 30, Pagination{Total: 30, Page: 1, Limit: 10, Pages: 3}},
		{"partial last page", 2, 10, 31, Pagination{Total: 31, Page: 2, Limit: 10, Pages: 4}},
		{"empty result", 1, 10, 0, Pagination{Total: 0, Page: 1, Limit: 10, Pages: 0}},
		{"zero page defaults to one", 0, 10, 5, Pagination{Total: 5, Page: 1, Limit: 10, Pages: 1}},
		{"zero limit defaults", 1, 0, 45, Pagination{Total: 45, Page: 1, Limit: 20, Pages: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewPagination(tt.page, tt.limit, tt.total))
		})
	}
}
