package dbtypes

type DBEngineType int

const (
	DBEngineAny    DBEngineType = 0
	DBEnginePgsql  DBEngineType = 1
	DBEngineSqlite DBEngineType = 2
)
