package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rainbowsvgs/spectra/dbtypes"
)

func InsertMarketActivities(activities []*dbtypes.MarketActivity, tx *sqlx.Tx) error {
	if len(activities) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql, "INSERT INTO market_activity (token_id, kind, actor, amount, first_seen) VALUES ")

	argIdx := 0
	args := make([]any, len(activities)*5)

	for i, activity := range activities {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}

		fmt.Fprintf(&sql, "($%v, $%v, $%v, $%v, $%v)", argIdx+1, argIdx+2, argIdx+3, argIdx+4, argIdx+5)
		args[argIdx] = activity.TokenId
		args[argIdx+1] = activity.Kind
		args[argIdx+2] = activity.Actor
		args[argIdx+3] = activity.Amount
		args[argIdx+4] = activity.FirstSeen
		argIdx += 5
	}

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}

	return nil
}

func GetMarketActivities(tokenId uint64, offset uint64, limit uint32) ([]*dbtypes.MarketActivity, uint64, error) {
	var sql strings.Builder
	args := []any{}

	fmt.Fprint(&sql, `
		WITH cte AS (
			SELECT id, token_id, kind, actor, amount, first_seen
			FROM market_activity
	`)

	if tokenId > 0 {
		args = append(args, tokenId)
		fmt.Fprintf(&sql, " WHERE token_id = $%v", len(args))
	}

	fmt.Fprint(&sql, `)
		SELECT
			count(*) AS id,
			0 AS token_id,
			'' AS kind,
			null AS actor,
			'' AS amount,
			0 AS first_seen
		FROM cte
		UNION ALL SELECT * FROM (
			SELECT id, token_id, kind, actor, amount, first_seen
			FROM cte
			ORDER BY id DESC
	`)

	args = append(args, limit)
	fmt.Fprintf(&sql, " LIMIT $%v", len(args))

	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	fmt.Fprint(&sql, ") AS t1")

	rows := []*dbtypes.MarketActivity{}
	err := ReaderDb.Select(&rows, sql.String(), args...)
	if err != nil {
		logger.Errorf("Error while fetching market activities: %v", err)
		return nil, 0, err
	}

	return rows[1:], rows[0].Id, nil
}

func GetLatestMarketActivities(limit uint32) ([]*dbtypes.MarketActivity, error) {
	rows := []*dbtypes.MarketActivity{}
	err := ReaderDb.Select(&rows, `
		SELECT id, token_id, kind, actor, amount, first_seen
		FROM market_activity
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}

	return rows, nil
}
