package database

import (
	"database/sql"
	"encoding/json"
)

// jsonColumn encodes v for a nullable JSON column. Nil values and empty
// slices are stored as NULL.
func jsonColumn(v any) (sql.NullString, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if s := string(b); s != "null" && s != "[]" {
		return sql.NullString{String: s, Valid: true}, nil
	}
	return sql.NullString{}, nil
}

func fromJSONColumn(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

func nullableString(col sql.NullString) *string {
	if !col.Valid {
		return nil
	}
	s := col.String
	return &s
}
