package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGeoPointOrdersLongitudeFirst(t *testing.T) {
	point := NewGeoPoint(10.4017, 43.7228)

	assert.Equal(t, "Point", point.Type)
	assert.Equal(t, [2]float64{10.4017, 43.7228}, point.Coordinates)
	assert.Equal(t, 10.4017, point.Longitude())
	assert.Equal(t, 43.7228, point.Latitude())
}

func TestDistanceKm(t *testing.T) {
	pisa := NewGeoPoint(10.4017, 43.7228)
	florence := NewGeoPoint(11.2558, 43.7696)

	assert.InDelta(t, 68.8, DistanceKm(pisa, florence), 1.0)
	assert.InDelta(t, DistanceKm(pisa, florence), DistanceKm(florence, pisa), 1e-9)
	assert.Zero(t, DistanceKm(pisa, pisa))
}

func TestAvailabilityKey(t *testing.T) {
	assert.Equal(t, "book:b-1:lib:l-2:avail", AvailabilityKey("b-1", "l-2"))
}

func TestAuthorHasBook(t *testing.T) {
	author := Author{Books: []BookSummary{{ID: "b-1"}}}

	assert.True(t, author.HasBook("b-1"))
	assert.False(t, author.HasBook("b-2"))
}

func TestBookSummaryCopiesSnapshotFields(t *testing.T) {
	subtitle := "Romanzo"
	book := Book{
		ID:         "b-1",
		Title:      "Title",
		Subtitle:   &subtitle,
		Categories: []string{"Fiction"},
		Authors:    []AuthorSummary{{ID: "a-1", FullName: "A"}},
	}

	summary := book.Summary()
	assert.Equal(t, "b-1", summary.ID)
	assert.Equal(t, &subtitle, summary.Subtitle)
	assert.Equal(t, book.Authors, summary.Authors)
}

func TestBookSummaryDoesNotShareSlices(t *testing.T) {
	book := Book{
		ID:         "b-1",
		Categories: []string{"Fiction"},
		Authors:    []AuthorSummary{{ID: "a-1", FullName: "A"}},
	}

	summary := book.Summary()
	book.Categories[0] = "Poetry"
	book.Authors[0].FullName = "B"

	assert.Equal(t, []string{"Fiction"}, summary.Categories)
	assert.Equal(t, "A", summary.Authors[0].FullName)
}
