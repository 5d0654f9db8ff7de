// Package scoring turns qualifier answers into per-module completion
// percentages and compares them with job-profile expectations.
package scoring

import (
	"math"
	"sort"

	"github.com/yoockh/skillradar/internal/models"
)

const DefaultExpected = 70.0

// Answer is one selected option for a (competency, qualifier) pair.
type Answer struct {
	CompetencyID string
	QualifierID  string
	OptionID     string
}

// Expectations is the job-profile side of the computation. A module present
// in Modules with a nil value falls back to Default.
type Expectations struct {
	Modules      map[string]*float64
	Competencies map[string]models.JobProfileCompetency
	Default      float64
}

type Input struct {
	// Modules is the full module list; only modules reachable from
	// Competencies are reported.
	Modules      []models.Module
	Competencies []models.Competency
	Qualifiers   []models.Qualifier
	Answers      []Answer

	// AllowedQualifiers restricts which qualifiers count. Nil or empty means all.
	AllowedQualifiers map[string]bool

	// Expectations is nil when the evaluation has no job profile.
	Expectations *Expectations
}

type moduleAcc struct {
	module   models.Module
	points   float64
	max      float64
	answered int
	total    int

	expWeighted float64
	expWeight   float64
	hasOverride bool
}

// ModuleScores computes one score per reachable module, ordered by sort order
// then name. Parent modules include the totals of their children.
func ModuleScores(in Input) []models.ModuleScore {
	modByID := make(map[string]models.Module, len(in.Modules))
	for _, m := range in.Modules {
		modByID[m.ID] = m
	}

	qualByID := make(map[string]models.Qualifier, len(in.Qualifiers))
	optByID := map[string]models.QualifierOption{}
	for _, q := range in.Qualifiers {
		if len(in.AllowedQualifiers) > 0 && !in.AllowedQualifiers[q.ID] {
			continue
		}
		qualByID[q.ID] = q
		for _, o := range q.Options {
			optByID[o.ID] = o
		}
	}

	// competency -> qualifier -> selected points
	selected := map[string]map[string]float64{}
	for _, a := range in.Answers {
		q, ok := qualByID[a.QualifierID]
		if !ok {
			continue
		}
		o, ok := optByID[a.OptionID]
		if !ok || o.QualifierID != q.ID {
			continue
		}
		byQual := selected[a.CompetencyID]
		if byQual == nil {
			byQual = map[string]float64{}
			selected[a.CompetencyID] = byQual
		}
		if q.Type == models.QualifierMultipleChoice {
			if o.Value > 0 {
				byQual[q.ID] += o.Value
			}
			continue
		}
		// single choice: keep the best answer if several slipped through
		if cur, seen := byQual[q.ID]; !seen || o.Value > cur {
			byQual[q.ID] = o.Value
		}
	}

	accs := map[string]*moduleAcc{}
	get := func(id string) *moduleAcc {
		if a, ok := accs[id]; ok {
			return a
		}
		m, ok := modByID[id]
		if !ok {
			m = models.Module{ID: id}
		}
		a := &moduleAcc{module: m}
		accs[id] = a
		return a
	}

	for _, c := range in.Competencies {
		weight := 1.0
		var override *float64
		if in.Expectations != nil {
			if jc, ok := in.Expectations.Competencies[c.ID]; ok {
				if jc.Weight != nil {
					weight = *jc.Weight
				}
				override = jc.ExpectedScore
			}
		}
		if weight <= 0 {
			continue
		}

		var points, max float64
		answered := false
		for qid, pts := range selected[c.ID] {
			qmax := qualByID[qid].MaxValue()
			if qmax <= 0 {
				continue
			}
			answered = true
			points += math.Min(math.Max(pts, 0), qmax)
			max += qmax
		}

		targets := []string{c.ModuleID}
		if parent := modByID[c.ModuleID].ParentID; parent != nil && *parent != "" {
			targets = append(targets, *parent)
		}
		for _, mid := range targets {
			a := get(mid)
			a.total++
			if answered {
				a.answered++
				a.points += weight * points
				a.max += weight * max
			}
			if in.Expectations != nil {
				if base, configured := moduleExpected(in.Expectations, mid); configured {
					e := base
					if override != nil {
						e = *override
						a.hasOverride = true
					}
					a.expWeighted += weight * e
					a.expWeight += weight
				}
			}
		}
	}

	out := make([]models.ModuleScore, 0, len(accs))
	for id, a := range accs {
		expected := 0.0
		if in.Expectations != nil {
			if base, configured := moduleExpected(in.Expectations, id); configured {
				expected = base
				if a.hasOverride && a.expWeight > 0 {
					expected = a.expWeighted / a.expWeight
				}
			}
		}
		score := Percent(a.points, a.max)
		expected = Round1(expected)
		out = append(out, models.ModuleScore{
			ModuleID:   id,
			ModuleName: a.module.Name,
			ParentID:   a.module.ParentID,
			Icon:       a.module.Icon,
			Color:      a.module.Color,
			SortOrder:  a.module.SortOrder,
			Score:      score,
			Expected:   expected,
			Gap:        Round1(score - expected),
			Meets:      expected == 0 || score >= expected,
			Answered:   a.answered,
			Total:      a.total,
			Points:     a.points,
			MaxPoints:  a.max,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		if out[i].ModuleName != out[j].ModuleName {
			return out[i].ModuleName < out[j].ModuleName
		}
		return out[i].ModuleID < out[j].ModuleID
	})
	return out
}

func moduleExpected(e *Expectations, moduleID string) (float64, bool) {
	v, ok := e.Modules[moduleID]
	if !ok {
		return 0, false
	}
	if v == nil {
		return e.Default, true
	}
	return *v, true
}

// Overall is the point-weighted completion across top-level modules.
func Overall(scores []models.ModuleScore) float64 {
	var points, max float64
	for _, s := range scores {
		if s.ParentID != nil {
			continue
		}
		points += s.Points
		max += s.MaxPoints
	}
	return Percent(points, max)
}

// Percent returns points/max as a percentage in [0, 100] rounded to one
// decimal, and 0 when max is not positive.
func Percent(points, max float64) float64 {
	if max <= 0 || math.IsNaN(points) || math.IsNaN(max) {
		return 0
	}
	p := points / max * 100
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return Round1(p)
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
