package results

import (
	"sort"

	"perfeval/internal/domain/assignment"
)

func departmentName(row AssignmentRow) string {
	if row.Department.Valid && row.Department.String != "" {
		return row.Department.String
	}
	return UnassignedDepartment
}

// BuildResults sums the scores recorded on each assignment. Assignment order
// is preserved.
func BuildResults(assignments []AssignmentRow, scores []ScoreRow) []Result {
	byAssignment := make(map[string][]ScoreRow, len(assignments))
	for _, sc := range scores {
		byAssignment[sc.AssignmentID] = append(byAssignment[sc.AssignmentID], sc)
	}

	out := make([]Result, 0, len(assignments))
	for _, a := range assignments {
		r := Result{
			AssignmentID: a.AssignmentID,
			EvaluationID: a.EvaluationID,
			Evaluation:   a.Evaluation,
			EvaluateeID:  a.EvaluateeID,
			Evaluatee:    a.Evaluatee,
			EvaluatorID:  a.EvaluatorID,
			Evaluator:    a.Evaluator,
			Department:   departmentName(a),
			Status:       a.Status,
			MaxScore:     a.MaxScore,
			Details:      []Detail{},
		}
		for _, sc := range byAssignment[a.AssignmentID] {
			r.TotalScore += sc.CalculatedScore
			r.Details = append(r.Details, Detail{
				Topic:           sc.Topic,
				Indicator:       sc.Indicator,
				Score:           sc.RawScore,
				Weight:          sc.Weight,
				CalculatedScore: sc.CalculatedScore,
			})
		}
		out = append(out, r)
	}
	return out
}

// BuildProgress counts completed assignments per evaluatee department,
// sorted by department name. Every listed department and Unassigned appear
// even without assignments.
func BuildProgress(departments []string, assignments []AssignmentRow) []DepartmentProgress {
	index := map[string]*DepartmentProgress{
		UnassignedDepartment: {Department: UnassignedDepartment},
	}
	for _, name := range departments {
		index[name] = &DepartmentProgress{Department: name}
	}
	for _, a := range assignments {
		name := departmentName(a)
		p, ok := index[name]
		if !ok {
			p = &DepartmentProgress{Department: name}
			index[name] = p
		}
		p.Total++
		if assignment.Completed(a.Status) {
			p.Completed++
		}
	}

	out := make([]DepartmentProgress, 0, len(index))
	for _, p := range index {
		if p.Total > 0 {
			p.Percentage = float64(p.Completed) / float64(p.Total) * 100
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}

// BuildTopicAnalysis averages the per-assignment topic totals over the
// assignments that scored at least one indicator of the topic.
func BuildTopicAnalysis(topics []TopicRow, scores []ScoreRow) []TopicAnalysis {
	totals := map[string]map[string]float64{}
	for _, sc := range scores {
		perAssignment, ok := totals[sc.TopicID]
		if !ok {
			perAssignment = map[string]float64{}
			totals[sc.TopicID] = perAssignment
		}
		perAssignment[sc.AssignmentID] += sc.CalculatedScore
	}

	out := make([]TopicAnalysis, 0, len(topics))
	for _, t := range topics {
		a := TopicAnalysis{
			TopicID:        t.TopicID,
			Topic:          t.Topic,
			IndicatorCount: t.IndicatorCount,
			MaxScore:       t.MaxScore,
		}
		perAssignment := totals[t.TopicID]
		a.ScoredAssignments = len(perAssignment)
		if a.ScoredAssignments > 0 {
			var sum float64
			for _, v := range perAssignment {
				sum += v
			}
			a.AverageScore = sum / float64(a.ScoredAssignments)
			if a.MaxScore > 0 {
				a.AveragePercentage = a.AverageScore / a.MaxScore * 100
			}
		}
		out = append(out, a)
	}
	return out
}
