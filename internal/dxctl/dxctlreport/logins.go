// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlreport

import (
	"context"
	"fmt"
	"time"

	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
)

// Login is a session of an account.
type Login struct {
	// UserID is the principal name.
	UserID string `json:"name"`
	// AccountCode is the account code.
	AccountCode string `json:"account_code"`
	// CreatedDate is the principal creation date.
	CreatedDate xtime.Date `json:"date"`
	// ExpireAt is the session expiry time, zero if unknown.
	ExpireAt time.Time `json:"expire_at"`
}

func (a *assembler) ListLogins(ctx context.Context) ([]*Login, error) {
	userPredicate, userArgs := a.userPredicate()
	query := fmt.Sprintf(loginsQuery, a.tablePrefix(), userPredicate)
	args := append([]any{a.loginsSince.String()}, userArgs...)
	rows, err := a.querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logins: %w", err)
	}
	rows = sqlstore.Distinct(rows)
	logins := make([]*Login, 0, len(rows))
	for _, row := range rows {
		createdDate, err := row.Time("created_date")
		if err != nil {
			return nil, err
		}
		expireAt, err := row.Time("expire_at")
		if err != nil {
			return nil, err
		}
		logins = append(logins, &Login{
			UserID:      row.String("user_id"),
			AccountCode: row.String("account_code"),
			CreatedDate: xtime.TimeToDate(createdDate.UTC()),
			ExpireAt:    expireAt,
		})
	}
	a.logger.Info("logins assembled", "users", a.userFilter.String(), "since", a.loginsSince.String(), "logins", len(logins))
	return logins, nil
}

// *** PRIVATE ***

const loginsQuery = `SELECT
	principals.name AS user_id,
	accounts.account_code AS account_code,
	CAST(principals.created_time AS DATE) AS created_date,
	user_sessions.expire_at AS expire_at
FROM %[1]suser_sessions AS user_sessions
LEFT JOIN %[1]sprincipals AS principals
	ON user_sessions.user_id = principals.id
RIGHT JOIN %[1]saccounts AS accounts
	ON accounts.owner_id = principals.id
WHERE principals.created_time >= ?
AND %[2]s`
