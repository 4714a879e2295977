package postgres

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pbxconnect-backend/pkg/phone"
)

// TestNumberStripMatchesNormalization tests that the SQL-side stripping
// pattern removes exactly the characters pkg/phone removes, so a normalized
// lookup input compares equal to a stripped stored number.
func TestNumberStripMatchesNormalization(t *testing.T) {
	strip := regexp.MustCompile(numberStrip)

	numbers := []string{
		"(555) 123-4567",
		"555 123 4567",
		"+31 (0)20-555-1234",
		"1001",
		"555-1234",
	}
	for _, n := range numbers {
		assert.Equal(t, phone.Normalize(n), strip.ReplaceAllString(n, ""), "number %q", n)
	}
}

// TestFindByNumberRanking tests the match-priority ordering baked into the
// lookup query: a normalized phone match sorts before a normalized mobile
// match, which sorts before a raw phone match, and name order breaks ties.
func TestFindByNumberRanking(t *testing.T) {
	orderBy := strings.Index(findByNumberQuery, "ORDER BY")
	require.Greater(t, orderBy, 0)
	ranking := findByNumberQuery[orderBy:]

	phoneRank := strings.Index(ranking, "phone, ''), '"+numberStrip)
	mobileRank := strings.Index(ranking, "mobile, ''), '"+numberStrip)
	rawRank := strings.Index(ranking, "ELSE 2")
	tieBreak := strings.Index(ranking, "name ASC, contact_id ASC")

	require.Greater(t, phoneRank, 0)
	assert.Less(t, phoneRank, mobileRank, "normalized phone must outrank normalized mobile")
	assert.Less(t, mobileRank, rawRank, "normalized mobile must outrank a raw phone match")
	assert.Less(t, rawRank, tieBreak, "ties resolve by name, then id")

	assert.Contains(t, ranking[phoneRank:mobileRank], "THEN 0")
	assert.Contains(t, ranking[mobileRank:rawRank], "THEN 1")
	assert.Equal(t, 1, strings.Count(findByNumberQuery, "LIMIT 1"), "lookup is zero-or-one")
}
