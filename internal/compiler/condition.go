package compiler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/skein/pkg/domain"
)

var (
	conditionSegment = regexp.MustCompile(`\{([^{}]*)\}`)

	notExpr     = regexp.MustCompile(`^not\s+([\p{L}_][\p{L}\p{N}_.]*)$`)
	compareExpr = regexp.MustCompile(`^([\p{L}_][\p{L}\p{N}_.]*)\s*([<>])\s*(\d+)$`)
	nameExpr    = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_.]*$`)
)

// ParseCondition parses the inline condition grammar:
//
//	not NAME   seen count of NAME equals 0
//	NAME > N   seen count of NAME greater than N
//	NAME < N   seen count of NAME less than N
//	NAME       seen count of NAME greater than 0
//
// NAME is a knot or a "knot.stitch" reference.
func ParseCondition(expr string) (domain.Condition, bool) {
	expr = strings.TrimSpace(expr)

	if m := notExpr.FindStringSubmatch(expr); m != nil {
		return domain.SeenCountCondition{Op: domain.SeenCountEq, Container: m[1], Count: 0}, true
	}

	if m := compareExpr.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, false
		}
		op := domain.SeenCountGt
		if m[2] == "<" {
			op = domain.SeenCountLt
		}
		return domain.SeenCountCondition{Op: op, Container: m[1], Count: n}, true
	}

	if expr != "not" && nameExpr.MatchString(expr) {
		return domain.SeenCountCondition{Op: domain.SeenCountGt, Container: expr, Count: 0}, true
	}

	return nil, false
}
