package evaluation

const (
	StatusOpen      = "OPEN"
	StatusClosed    = "CLOSED"
	StatusCancelled = "CANCELLED"

	IndicatorScale = "SCALE_1_4"
	IndicatorYesNo = "YES_NO"

	DefaultTopicWeight = 1.0
)

var Statuses = []string{StatusOpen, StatusClosed, StatusCancelled}

var IndicatorTypes = []string{IndicatorScale, IndicatorYesNo}
