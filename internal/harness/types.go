package harness

// Stage names the step of a case run that produced a result or failure.
type Stage string

const (
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
	StageEncode   Stage = "encode"
	StageDecode   Stage = "decode"
	StageCompile  Stage = "compile"
	StageExpect   Stage = "expect"
)

// Result is the outcome of running one case.
type Result struct {
	// Pass is true when every check and expectation held.
	Pass bool `json:"pass"`

	// Stage is the last stage reached.
	Stage Stage `json:"stage"`

	// Dump is the rendered query; empty when parsing failed.
	Dump string `json:"dump,omitempty"`

	// Wire is the encoded query.
	Wire []byte `json:"wire,omitempty"`

	// Fingerprint is the query content hash.
	Fingerprint string `json:"fingerprint,omitempty"`

	// SQL is the compiled SQLite statement, when compilation was requested.
	SQL string `json:"sql,omitempty"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
