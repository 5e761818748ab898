package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/attendtrack/core"
)

func Test_orderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "none", want: []string{"id ASC"}},
		{name: "date desc", ordering: []core.DBOrdering{core.OrderBy("date")}, want: []string{"date DESC", "id DESC"}},
		{
			name:     "unknown fields are dropped",
			ordering: []core.DBOrdering{core.OrderBy("password_hash; --"), core.OrderBy("roll_number", true)},
			want:     []string{"roll_number ASC", "id ASC"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, orderBy(tc.ordering, "date", "roll_number"))
		})
	}
}

func Test_dateRange(t *testing.T) {
	from := core.NewDate(2024, 1, 1)
	to := core.NewDate(2024, 1, 31)

	query, args, err := limit(dateRange(psql.Select("*").From("attendance"), from, to), 5).ToSql()

	assert.NoError(t, err)
	assert.Equal(t, "SELECT * FROM attendance WHERE date >= $1 AND date <= $2 LIMIT 5", query)
	assert.Equal(t, []interface{}{from, to}, args)
}
