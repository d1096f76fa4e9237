package reports

// AssignmentCounts groups assignments by lifecycle status.
type AssignmentCounts struct {
	Draft     int `json:"draft"`
	Submitted int `json:"submitted"`
	Locked    int `json:"locked"`
}

func (c AssignmentCounts) Total() int {
	return c.Draft + c.Submitted + c.Locked
}

// CompletionRate is the share of submitted or locked assignments as a
// percentage, 0 when there are none.
func (c AssignmentCounts) CompletionRate() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Submitted+c.Locked) * 100 / float64(total)
}

type AdminDashboard struct {
	Role            string           `json:"role"`
	OpenEvaluations int              `json:"openEvaluations"`
	Users           int              `json:"users"`
	Assignments     AssignmentCounts `json:"assignments"`
	CompletionRate  float64          `json:"completionRate"`
}

type EvaluatorDashboard struct {
	Role           string           `json:"role"`
	Assignments    AssignmentCounts `json:"assignments"`
	ScoresRecorded int              `json:"scoresRecorded"`
}

type EvaluateeDashboard struct {
	Role                string           `json:"role"`
	Assignments         AssignmentCounts `json:"assignments"`
	EvidenceUploaded    int              `json:"evidenceUploaded"`
	UnreadNotifications int              `json:"unreadNotifications"`
}
