package util

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"todoitems/internal/core/domain"
)

func ParamsToMap[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindJSON(&params); err != nil {
		return params, err
	}

	return params, nil
}

// ParsePathID accepts any base-10 integer. Anything else is domain.ErrInvalidPathVariable.
func ParsePathID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)

	if err != nil {
		return 0, domain.ErrInvalidPathVariable
	}

	return id, nil
}

// ParsePositiveInt returns fallback when raw is not an integer greater than zero.
func ParsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))

	if err != nil || value < 1 {
		return fallback
	}

	return value
}
