package chart

// Category20 is the twenty color categorical scheme used for series.
var Category20 = []string{
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
}

// Palette assigns colors to series by their position in the series list.
type Palette []string

func (p Palette) Color(index int) string {
	if len(p) == 0 {
		p = Category20
	}
	if index < 0 {
		index = -index
	}
	return p[index%len(p)]
}
