package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "irrad", Password: "pw", Database: "samples", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=irrad password=pw dbname=samples sslmode=disable", c.GetDSN())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "pg.internal")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_MAX_CONNS", "nope")
	t.Setenv("TEST_MQTT_QOS", "1")
	t.Setenv("TEST_REDIS_DB", "3")

	db := DatabaseConfig{Host: "localhost", Port: 5432, MaxConns: 10}
	db.LoadFromEnv("TEST_DB")
	assert.Equal(t, "pg.internal", db.Host)
	assert.Equal(t, 6543, db.Port)
	assert.Equal(t, 10, db.MaxConns)

	m := MQTTConfig{}
	m.LoadFromEnv("TEST_MQTT")
	assert.Equal(t, byte(1), m.QoS)

	r := RedisConfig{}
	r.LoadFromEnv("TEST_REDIS")
	assert.Equal(t, 3, r.DB)
}
