// Package chart computes SVG pie/donut geometry. Segments are drawn as
// stroked circles: each one's dash length is its share of the circumference
// and its offset is the sum of the segments before it.
package chart

import "math"

// Slice is one labelled value to plot
type Slice struct {
	Label string
	Value int64
	Color string
}

// Segment is a slice resolved into stroke-dasharray terms
type Segment struct {
	Label      string  `json:"label"`
	Value      int64   `json:"value"`
	Color      string  `json:"color"`
	Percent    float64 `json:"percent"`     // 0-100, one decimal
	DashLength float64 `json:"dash_length"` // visible stroke
	GapLength  float64 `json:"gap_length"`  // rest of the circumference
	DashOffset float64 `json:"dash_offset"` // negative cumulative start
}

// Pie is a complete chart ready for the template
type Pie struct {
	Radius        float64   `json:"radius"`
	Circumference float64   `json:"circumference"`
	Total         int64     `json:"total"`
	Segments      []Segment `json:"segments"`
}

// NewPie lays out slices on a circle of the given radius. Zero-valued slices
// are kept (so legends stay stable) but draw nothing.
func NewPie(radius float64, slices []Slice) Pie {
	circumference := 2 * math.Pi * radius
	pie := Pie{
		Radius:        radius,
		Circumference: round(circumference, 4),
		Segments:      make([]Segment, 0, len(slices)),
	}

	for _, s := range slices {
		pie.Total += s.Value
	}

	var cumulative float64
	for _, s := range slices {
		seg := Segment{Label: s.Label, Value: s.Value, Color: s.Color}
		if pie.Total > 0 && s.Value > 0 {
			share := float64(s.Value) / float64(pie.Total)
			seg.Percent = round(share*100, 1)
			seg.DashLength = round(share*circumference, 4)
			seg.GapLength = round(circumference-share*circumference, 4)
			seg.DashOffset = round(-cumulative, 4)
			cumulative += share * circumference
		} else {
			seg.GapLength = round(circumference, 4)
			seg.DashOffset = round(-cumulative, 4)
		}
		pie.Segments = append(pie.Segments, seg)
	}
	return pie
}

// Percent returns part/total*100 rounded to one decimal, zero when total is zero
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
