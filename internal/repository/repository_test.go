package repository

import (
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecimalConversion(t *testing.T) {
	for _, raw := range []string{"0", "49.90", "189", "0.01", "123456789.123456"} {
		d := decimal.RequireFromString(raw)
		back := fromCQLDecimal(toCQLDecimal(d))
		assert.True(t, d.Equal(back), raw)
	}
	assert.True(t, fromCQLDecimal(nil).IsZero())
}

func TestNullableConversions(t *testing.T) {
	assert.Nil(t, uuidOrNil(gocql.UUID{}))
	id := uuid.New()
	assert.Equal(t, id, *uuidOrNil(gocql.UUID(id)))
	assert.Nil(t, optionalUUID(nil))

	assert.Nil(t, timeOrNil(time.Time{}))
	assert.Nil(t, optionalTime(nil))
	now := time.Now()
	assert.Equal(t, now, *timeOrNil(now))
}
