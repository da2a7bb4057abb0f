package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/roach88/qir/internal/queryir"
	"github.com/roach88/qir/internal/querysql"
	"github.com/roach88/qir/internal/wire"
)

// QueryView is the JSON form of a query shown by parse, dsl and decode.
type QueryView struct {
	Namespace   string `json:"namespace"`
	Describe    bool   `json:"describe,omitempty"`
	Dump        string `json:"dump"`
	Fingerprint string `json:"fingerprint"`
	Joins       int    `json:"joins"`
	Merges      int    `json:"merges"`
	Wire        string `json:"wire,omitempty"` // hex
	SQL         string `json:"sql,omitempty"`
	Params      []any  `json:"params,omitempty"`
}

// viewOptions selects the optional parts of a QueryView.
type viewOptions struct {
	wire bool
	sql  bool
}

// buildView validates q and renders the requested parts.
// A validation failure is returned as the first ValidationError.
func buildView(q *queryir.Query, vo viewOptions) (*QueryView, error) {
	if errs := queryir.Validate(q); len(errs) > 0 {
		return nil, errs[0]
	}

	fp, err := q.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	view := &QueryView{
		Namespace:   q.Namespace,
		Describe:    q.Describe,
		Dump:        q.Dump(),
		Fingerprint: fp,
		Joins:       len(q.JoinQueries),
		Merges:      len(q.MergeQueries),
	}

	if vo.wire {
		data, err := wire.Encode(q)
		if err != nil {
			return nil, err
		}
		view.Wire = hex.EncodeToString(data)
	}
	if vo.sql {
		sqlText, params, err := querysql.NewSQLCompiler().Compile(q)
		if err != nil {
			return nil, err
		}
		view.SQL = sqlText
		view.Params = params
	}
	return view, nil
}

// text renders the view for text output: the dump, then the optional parts.
func (v *QueryView) text() string {
	var b strings.Builder
	b.WriteString(v.Dump)
	if v.Wire != "" {
		b.WriteString("\nwire: " + v.Wire)
	}
	if v.SQL != "" {
		b.WriteString("\nsql: " + v.SQL)
		if len(v.Params) > 0 {
			fmt.Fprintf(&b, "\nparams: %v", v.Params)
		}
	}
	return b.String()
}
