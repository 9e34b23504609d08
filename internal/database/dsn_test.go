package database

import (
	"path/filepath"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "insyd", Name: "insyd"})
	require.NoError(t, err)
	require.Equal(t, "postgres://insyd@localhost:5432/insyd?sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "p@ss word/1",
		Options: map[string]string{
			"sslmode":          "disable",
			"application_name": "insyd",
		},
	})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com", parsed.Host)
	require.EqualValues(t, 6543, parsed.Port)
	require.Equal(t, "user", parsed.User)
	require.Equal(t, "p@ss word/1", parsed.Password)
	require.Equal(t, "db", parsed.Database)
	require.Equal(t, "insyd", parsed.RuntimeParams["application_name"])
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "insyd", Name: "insyd"})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "insyd", parsed.User)
	require.Equal(t, "insyd", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Contains(t, dsn, "charset=utf8mb4")
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "se:cr@t",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"timeout": "5s"},
	})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "se:cr@t", parsed.Passwd)
	require.Equal(t, "db", parsed.DBName)
	require.Equal(t, "5s", parsed.Timeout.String())
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestExplicitDSNWins(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)

	dsn, err = buildMySQLDSN(Config{DSN: "root@/override"})
	require.NoError(t, err)
	require.Equal(t, "root@/override", dsn)
}

func TestBuildSQLiteDSN(t *testing.T) {
	dsn, err := buildSQLiteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, "file::memory:?cache=shared&_foreign_keys=1", dsn)

	dsn, err = buildSQLiteDSN(Config{Path: "memory:suite"})
	require.NoError(t, err)
	require.Equal(t, "file:suite?mode=memory&cache=shared&_foreign_keys=1", dsn)

	dir := t.TempDir()
	dsn, err = buildSQLiteDSN(Config{Path: filepath.Join(dir, "nested", "insyd.sqlite")})
	require.NoError(t, err)
	require.Contains(t, dsn, "_busy_timeout=5000")
	require.DirExists(t, filepath.Join(dir, "nested"))
}
