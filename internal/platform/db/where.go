package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed conditions with positional arguments.
type Where struct {
	conds []string
	args  []any
}

// Arg registers v and returns its placeholder.
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// And appends a condition built with placeholders from Arg.
func (w *Where) And(cond string) {
	w.conds = append(w.conds, cond)
}

// SQL renders the WHERE clause, or an empty string without conditions.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the registered arguments.
func (w *Where) Args() []any {
	return w.args
}

// Page returns the LIMIT/OFFSET suffix and the arguments extended with them.
func (w *Where) Page(limit, offset int) (string, []any) {
	args := append(append([]any{}, w.args...), limit, offset)
	return " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args)), args
}
