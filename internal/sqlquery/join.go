package sqlquery

// JoinKind identifies the SQL join variant.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFullOuter
)

func (k JoinKind) sql() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFullOuter:
		return "FULL OUTER JOIN"
	default:
		return "JOIN"
	}
}

// Join specifies one joined table, its ON predicate, and the join kind. The
// On filter's unqualified leaves resolve against the joined table by
// default (see SPEC_FULL.md §9 on the deliberate divergence from the
// original ORM, which resolved them against the primary table instead).
type Join struct {
	Table string
	On    Filter
	Kind  JoinKind
}

// InnerJoin creates an INNER JOIN.
func InnerJoin(table string, on Filter) Join { return Join{Table: table, On: on, Kind: JoinInner} }

// LeftJoin creates a LEFT JOIN.
func LeftJoin(table string, on Filter) Join { return Join{Table: table, On: on, Kind: JoinLeft} }

// RightJoin creates a RIGHT JOIN.
func RightJoin(table string, on Filter) Join { return Join{Table: table, On: on, Kind: JoinRight} }

// FullOuterJoin creates a FULL OUTER JOIN.
func FullOuterJoin(table string, on Filter) Join {
	return Join{Table: table, On: on, Kind: JoinFullOuter}
}
