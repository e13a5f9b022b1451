// Package repository contient l'accès ScyllaDB des agrégats du magasin.
package repository

import (
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("concurrent update conflict")
	ErrDuplicate = errors.New("duplicate entry")
)

// nombre de tentatives d'une mise à jour conditionnelle (IF version = ?)
const maxCASRetries = 5

// SessionFunc fournit la session du keyspace ; la ScyllaManager la recrée au besoin
type SessionFunc func() (*gocql.Session, error)

func toCQLDecimal(d decimal.Decimal) *inf.Dec {
	return new(inf.Dec).SetUnscaledBig(d.Coefficient()).SetScale(inf.Scale(-d.Exponent()))
}

func fromCQLDecimal(d *inf.Dec) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.UnscaledBig(), -int32(d.Scale()))
}

func cqlUUID(id uuid.UUID) gocql.UUID {
	return gocql.UUID(id)
}

// optionalUUID : nil pour une colonne NULL
func optionalUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return gocql.UUID(*id)
}

func uuidOrNil(id gocql.UUID) *uuid.UUID {
	if id == (gocql.UUID{}) {
		return nil
	}
	u := uuid.UUID(id)
	return &u
}

func optionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func cqlUUIDs(ids []uuid.UUID) []gocql.UUID {
	out := make([]gocql.UUID, len(ids))
	for i, id := range ids {
		out[i] = gocql.UUID(id)
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
