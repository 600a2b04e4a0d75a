package sqltmpl

import "strings"

// reservedWords is the fixed set of words quoted when used as identifiers.
// It covers the Oracle reserved words most likely to appear as column names;
// it is not a full dialect keyword list.
var reservedWords = map[string]struct{}{
	"ACCESS": {}, "ADD": {}, "ALL": {}, "ALTER": {}, "AND": {}, "ANY": {},
	"AS": {}, "ASC": {}, "AUDIT": {}, "BETWEEN": {}, "BY": {}, "CHAR": {},
	"CHECK": {}, "CLUSTER": {}, "COLUMN": {}, "COMMENT": {}, "CONNECT": {},
	"CREATE": {}, "CURRENT": {}, "DATE": {}, "DECIMAL": {}, "DEFAULT": {},
	"DELETE": {}, "DESC": {}, "DISTINCT": {}, "DROP": {}, "ELSE": {},
	"EXISTS": {}, "FILE": {}, "FLOAT": {}, "FOR": {}, "FROM": {}, "GRANT": {},
	"GROUP": {}, "HAVING": {}, "IN": {}, "INDEX": {}, "INSERT": {},
	"INTEGER": {}, "INTERSECT": {}, "INTO": {}, "IS": {}, "LEVEL": {},
	"LIKE": {}, "LOCK": {}, "LONG": {}, "MODE": {}, "NOT": {}, "NULL": {},
	"NUMBER": {}, "OF": {}, "ON": {}, "OPTION": {}, "OR": {}, "ORDER": {},
	"RAW": {}, "RENAME": {}, "RESOURCE": {}, "ROW": {}, "ROWID": {},
	"ROWNUM": {}, "ROWS": {}, "SELECT": {}, "SESSION": {}, "SET": {},
	"SIZE": {}, "START": {}, "SYNONYM": {}, "TABLE": {}, "THEN": {}, "TO": {},
	"TRIGGER": {}, "UID": {}, "UNION": {}, "UNIQUE": {}, "UPDATE": {},
	"USER": {}, "VALUES": {}, "VARCHAR": {}, "VARCHAR2": {}, "VIEW": {},
	"WHERE": {}, "WITH": {},
}

// IsReservedWord reports whether name must be quoted as an identifier.
func IsReservedWord(name string) bool {
	_, ok := reservedWords[strings.ToUpper(name)]
	return ok
}

// QuoteIdentifier uppercases name and double-quotes it when it collides with
// a reserved word.
func QuoteIdentifier(name string) string {
	upper := strings.ToUpper(name)
	if IsReservedWord(upper) {
		return `"` + upper + `"`
	}
	return upper
}
