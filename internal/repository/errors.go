package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate はユニーク制約違反を表す。
// 登録時の自然キー重複や外部決済IDの再送を呼び出し側で区別するために使う。
var ErrDuplicate = errors.New("duplicate key")

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// isUniqueViolation はerrがユニーク制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
