package domain

import (
	"strconv"

	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// MaxPageLimit caps a single page of results.
const MaxPageLimit = 1000

// Pagination selects a window of a listing. A nil Limit means no upper bound.
type Pagination struct {
	Offset int
	Limit  *int
}

// ParsePagination reads offset and limit from query parameters. Both or neither must be
// present.
func ParsePagination(params map[string]string) (Pagination, error) {
	if len(params) == 0 {
		return Pagination{}, nil
	}
	rawOffset, hasOffset := params["offset"]
	rawLimit, hasLimit := params["limit"]
	if !hasOffset && !hasLimit {
		return Pagination{}, nil
	}
	if !hasOffset || !hasLimit {
		return Pagination{}, apperrors.MissingParams()
	}

	offset, err := strconv.ParseUint(rawOffset, 10, 31)
	if err != nil {
		return Pagination{}, apperrors.ParseError(err)
	}
	limit, err := strconv.ParseUint(rawLimit, 10, 31)
	if err != nil {
		return Pagination{}, apperrors.ParseError(err)
	}
	if limit == 0 || limit > MaxPageLimit {
		return Pagination{}, apperrors.InvalidParamsRange()
	}

	l := int(limit)
	return Pagination{Offset: int(offset), Limit: &l}, nil
}
