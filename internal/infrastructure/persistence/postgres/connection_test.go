package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/pdv-service/internal/config"
)

func TestDataSource(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "pdv",
		Password: "pdv",
		DBName:   "pdv",
		SSLMode:  "disable",
	}

	tests := []struct {
		name       string
		driver     string
		wantDriver string
		wantDSN    string
	}{
		{"default is lib/pq", "", DriverPQ, "host=db port=5432 user=pdv password=pdv dbname=pdv sslmode=disable"},
		{"lib/pq", DriverPQ, DriverPQ, "host=db port=5432 user=pdv password=pdv dbname=pdv sslmode=disable"},
		{"pgx takes the URL", DriverPGX, DriverPGX, "postgres://pdv:pdv@db:5432/pdv?sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Driver = tt.driver

			driver, dsn, err := dataSource(c)

			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestDataSource_UnknownDriver(t *testing.T) {
	_, _, err := dataSource(config.DatabaseConfig{Driver: "sqlserver"})
	assert.Error(t, err)
}
