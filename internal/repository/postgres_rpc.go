package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// identPattern はRPC関数名・引数名として許可する識別子。
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresRPC はpublicスキーマのストアドファンクションを呼び出すRPCCaller実装。
// 結果はto_jsonbでJSONに変換して返す。
type PostgresRPC struct {
	db *sql.DB
}

// NewPostgresRPC はPostgresRPCを生成する。
func NewPostgresRPC(db *sql.DB) *PostgresRPC {
	return &PostgresRPC{db: db}
}

// Call は関数fnを名前付き引数で呼び出し、結果をJSONで返す。
// 関数がNULLを返した場合は"null"を返す。
// エラーはClassifyErrorで分類済みのAPIErrorとなる。
func (r *PostgresRPC) Call(ctx context.Context, fn string, args ...RPCArg) (json.RawMessage, error) {
	query, values, err := buildRPCQuery(fn, args)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, values...).Scan(&raw); err != nil {
		return nil, ClassifyError("call "+fn, err)
	}
	if raw == nil {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(raw), nil
}

// buildRPCQuery は `SELECT to_jsonb(public.fn(a => $1, ...))` を組み立てる。
// 識別子はプレースホルダーにできないため、許可パターンで検証する。
func buildRPCQuery(fn string, args []RPCArg) (string, []any, error) {
	if !identPattern.MatchString(fn) {
		return "", nil, fmt.Errorf("invalid rpc function name: %q", fn)
	}

	parts := make([]string, 0, len(args))
	values := make([]any, 0, len(args))
	for i, a := range args {
		if !identPattern.MatchString(a.Name) {
			return "", nil, fmt.Errorf("invalid rpc argument name: %q", a.Name)
		}
		parts = append(parts, fmt.Sprintf("%s => $%d", a.Name, i+1))
		values = append(values, a.Value)
	}

	query := fmt.Sprintf("SELECT to_jsonb(public.%s(%s))", fn, strings.Join(parts, ", "))
	return query, values, nil
}
