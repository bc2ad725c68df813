// Package plot builds the Plotly layout used to render cleaned series as a
// polar RCS pattern.
package plot

// DefaultTitle is used when no title is given.
const DefaultTitle = "RCS Pattern"

const (
	gridColor = "rgba(255,255,255,0.2)"
	lineColor = "rgba(255,255,255,0.3)"
)

// Layout is a Plotly figure layout.
type Layout struct {
	Title        string `json:"title" yaml:"title"`
	Polar        Polar  `json:"polar" yaml:"polar"`
	ShowLegend   bool   `json:"showlegend" yaml:"showlegend"`
	PaperBGColor string `json:"paper_bgcolor" yaml:"paper_bgcolor"`
	PlotBGColor  string `json:"plot_bgcolor" yaml:"plot_bgcolor"`
	Font         Font   `json:"font" yaml:"font"`
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
}

// Polar configures the polar subplot.
type Polar struct {
	RadialAxis  RadialAxis  `json:"radialaxis" yaml:"radialaxis"`
	AngularAxis AngularAxis `json:"angularaxis" yaml:"angularaxis"`
	BGColor     string      `json:"bgcolor" yaml:"bgcolor"`
}

type RadialAxis struct {
	Visible   bool   `json:"visible" yaml:"visible"`
	Title     string `json:"title" yaml:"title"`
	GridColor string `json:"gridcolor" yaml:"gridcolor"`
	LineColor string `json:"linecolor" yaml:"linecolor"`
}

type AngularAxis struct {
	Direction string `json:"direction" yaml:"direction"`
	Period    int    `json:"period" yaml:"period"`
	GridColor string `json:"gridcolor" yaml:"gridcolor"`
	LineColor string `json:"linecolor" yaml:"linecolor"`
}

type Font struct {
	Color string `json:"color" yaml:"color"`
}

// NewLayout returns the dark polar layout for an RCS pattern in dBsm. An
// empty title becomes DefaultTitle.
func NewLayout(title string) Layout {
	if title == "" {
		title = DefaultTitle
	}
	return Layout{
		Title: title,
		Polar: Polar{
			RadialAxis: RadialAxis{
				Visible:   true,
				Title:     "RCS (dBsm)",
				GridColor: gridColor,
				LineColor: lineColor,
			},
			AngularAxis: AngularAxis{
				Direction: "counterclockwise",
				Period:    360,
				GridColor: gridColor,
				LineColor: lineColor,
			},
			BGColor: "rgba(0,0,0,0.8)",
		},
		ShowLegend:   true,
		PaperBGColor: "rgba(0,0,0,0)",
		PlotBGColor:  "rgba(0,0,0,0)",
		Font:         Font{Color: "white"},
		Width:        600,
		Height:       600,
	}
}
