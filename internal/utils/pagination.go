package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// QueryInt reads a positive integer query parameter, falling back to
// defaultVal when it is missing or not a positive number.
func QueryInt(c *fiber.Ctx, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultVal
	}
	return n
}

// GetLimit extracts the page size. Values above maxLimit are clamped.
func GetLimit(c *fiber.Ctx, defaultLimit, maxLimit int) int {
	limit := QueryInt(c, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
