package domain

// SubjectType differentiates consumer vs staff tokens.
type SubjectType string

const (
	SubjectTypeUser     SubjectType = "USER"
	SubjectTypeOperator SubjectType = "OPERATOR"
)
