package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://x@y/z", Host: "ignored"},
			want: "postgres://x@y/z",
		},
		{
			name: "defaults port and sslmode",
			cfg:  ClientConfig{Host: "db", Database: "coinone", User: "bot", Password: "pw"},
			want: "postgres://bot:pw@db:5432/coinone?sslmode=disable",
		},
		{
			name: "custom port and sslmode",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "c", User: "u", Password: "p", SSLMode: "require"},
			want: "postgres://u:p@db:6543/c?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestMigrationFiles(t *testing.T) {
	names, err := migrationFiles(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])

	data, err := migrationsFS.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "analysis_snapshots")
	assert.Contains(t, string(data), "audit_log")
}

func TestSelectQuery(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := newSelect("SELECT payload FROM analysis_snapshots").
		where("symbol =", "BTC/KRW").
		page("ts", domain.ListOpts{Since: &since, Limit: 50, Offset: 10})

	assert.Equal(t,
		"SELECT payload FROM analysis_snapshots WHERE 1=1 AND symbol = $1 AND ts >= $2 ORDER BY ts DESC LIMIT $3 OFFSET $4",
		q.String())
	assert.Equal(t, []any{"BTC/KRW", since, 50, 10}, q.args)
}

func TestSelectQuery_NoOpts(t *testing.T) {
	q := newSelect("SELECT id FROM audit_log").page("created_at", domain.ListOpts{})
	assert.Equal(t, "SELECT id FROM audit_log WHERE 1=1 ORDER BY created_at DESC", q.String())
	assert.Empty(t, q.args)
}

func TestDecodeAnalysis(t *testing.T) {
	in := domain.AnalysisResult{Timestamp: 1700000000, Symbol: "ETH/KRW", Flags: []string{"thin_book_risk"}}
	payload, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := decodeAnalysis(payload)
	require.NoError(t, err)
	assert.Equal(t, "ETH/KRW", out.Symbol)
	assert.Equal(t, []string{"thin_book_risk"}, out.Flags)

	_, err = decodeAnalysis([]byte("{"))
	assert.Error(t, err)
}
