package schools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/czedu/internal/fetcher"
)

const detailPath = "VREJVerejne/PravOsoba.aspx"

func TestHasNoResults(t *testing.T) {
	marker := "Zadaným podmínkám nevyhovuje žádný záznam"

	assert.True(t, HasNoResults(&fetcher.Page{Body: []byte(noResultHTML)}, marker))
	assert.False(t, HasNoResults(&fetcher.Page{Body: []byte(resultHTML("a"))}, marker))
	assert.False(t, HasNoResults(&fetcher.Page{Body: []byte(noResultHTML)}, ""))
}

func TestDetailLinks(t *testing.T) {
	page := &fetcher.Page{
		URL: "https://rejstriky.msmt.cz/rejskol/search.aspx",
		Body: []byte(resultHTML(
			"VREJVerejne/PravOsoba.aspx?ID=1",
			"/rejskol/VREJVerejne/PravOsoba.aspx?ID=2",
			"VREJVerejne/PravOsoba.aspx?ID=1",
			"https://rejstriky.msmt.cz/rejskol/VREJVerejne/PravOsoba.aspx?ID=3",
		)),
	}

	links, err := DetailLinks(page, detailPath)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://rejstriky.msmt.cz/rejskol/VREJVerejne/PravOsoba.aspx?ID=1",
		"https://rejstriky.msmt.cz/rejskol/VREJVerejne/PravOsoba.aspx?ID=2",
		"https://rejstriky.msmt.cz/rejskol/VREJVerejne/PravOsoba.aspx?ID=3",
	}, links)
}

func TestDetailLinks_None(t *testing.T) {
	page := &fetcher.Page{URL: "https://rejstriky.msmt.cz/rejskol/search.aspx", Body: []byte(resultHTML())}

	links, err := DetailLinks(page, detailPath)
	require.NoError(t, err)
	assert.Empty(t, links)
}
