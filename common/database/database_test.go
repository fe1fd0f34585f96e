package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		want    string
		wantErr bool
	}{
		{
			name: "postgres scheme",
			dsn:  "postgres://u:p@db:5432/microdo?sslmode=disable",
			want: "pgx5://u:p@db:5432/microdo?sslmode=disable&x-migrations-table=tasks_schema_migrations",
		},
		{
			name: "postgresql scheme",
			dsn:  "postgresql://u@db/microdo",
			want: "pgx5://u@db/microdo?x-migrations-table=tasks_schema_migrations",
		},
		{name: "unsupported", dsn: "mysql://u@db/microdo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := migrateURL(tt.dsn, "tasks_schema_migrations")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
