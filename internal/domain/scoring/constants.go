package scoring

const (
	ScaleMin = 1
	ScaleMax = 4
)
