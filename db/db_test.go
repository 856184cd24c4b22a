package db

import (
	"testing"

	"github.com/rainbowsvgs/spectra/dbtypes"
)

func TestEngineQuery(t *testing.T) {
	queryMap := map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: "pgsql query",
		dbtypes.DBEngineAny:   "generic query",
	}

	DbEngine = dbtypes.DBEnginePgsql
	if q := EngineQuery(queryMap); q != "pgsql query" {
		t.Errorf("expected engine specific query, got %q", q)
	}

	DbEngine = dbtypes.DBEngineSqlite
	if q := EngineQuery(queryMap); q != "generic query" {
		t.Errorf("expected fallback query, got %q", q)
	}
}
