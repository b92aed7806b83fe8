package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
)

type seedParameter struct {
	param.NewParameter
	weights []eval.RoleWeight
}

// defaultWeights splits a parameter between teacher, parent and self; the
// required weights sum to 1.0.
var defaultWeights = []eval.RoleWeight{
	{Role: eval.RoleTeacher, Weight: 0.5, Required: true},
	{Role: eval.RoleParent, Weight: 0.3, Required: true},
	{Role: eval.RoleSelf, Weight: 0.2, Required: true},
}

var seedParameters = []seedParameter{
	{
		NewParameter: param.NewParameter{Name: "Mathematics", Category: param.CategoryScholastic, Weightage: 0.25, ScaleMin: 0, ScaleMax: 100},
		weights:      defaultWeights,
	},
	{
		NewParameter: param.NewParameter{Name: "Language", Category: param.CategoryScholastic, Weightage: 0.25, ScaleMin: 0, ScaleMax: 100},
		weights:      defaultWeights,
	},
	{
		NewParameter: param.NewParameter{Name: "Creative Arts", Category: param.CategoryCoScholastic, Weightage: 0.2, ScaleMin: 0, ScaleMax: 100},
		weights: []eval.RoleWeight{
			{Role: eval.RoleTeacher, Weight: 0.6, Required: true},
			{Role: eval.RoleSelf, Weight: 0.4, Required: true},
			{Role: eval.RolePeer, Weight: 0.2},
		},
	},
	{
		NewParameter: param.NewParameter{Name: "Teamwork", Category: param.CategoryLifeSkills, Weightage: 0.15, ScaleMin: 0, ScaleMax: 100},
		weights: []eval.RoleWeight{
			{Role: eval.RoleTeacher, Weight: 0.4, Required: true},
			{Role: eval.RoleCoach, Weight: 0.3, Required: true},
			{Role: eval.RoleSelf, Weight: 0.3, Required: true},
			{Role: eval.RolePeer, Weight: 0.2},
		},
	},
	{
		NewParameter: param.NewParameter{Name: "Punctuality", Category: param.CategoryDiscipline, Weightage: 0.1, ScaleMin: 0, ScaleMax: 100},
		weights: []eval.RoleWeight{
			{Role: eval.RoleTeacher, Weight: 0.7, Required: true},
			{Role: eval.RoleCounselor, Weight: 0.3, Required: true},
		},
	},
}

// seed loads the default progress card setup: one parameter per example
// trait, a published default rubric each, evaluator assignments and the
// school-level overall rubric.
func (cli *commandLine) seed() error {
	for _, sp := range seedParameters {
		np := sp.NewParameter
		if err := np.Validate(); err != nil {
			return errors.Wrapf(err, "validating %q", np.Name)
		}
		p, err := cli.paramSvc.Create(np)
		if err != nil {
			return errors.Wrapf(err, "creating %q", np.Name)
		}
		if _, err = cli.paramSvc.AddRubricVersion(p.ID, param.DefaultLevels(p.ScaleMin, p.ScaleMax), true); err != nil {
			return errors.Wrapf(err, "adding rubric for %q", np.Name)
		}
		if _, err = cli.evalSvc.CreateAssignment(p.ID, sp.weights); err != nil {
			return errors.Wrapf(err, "assigning evaluators for %q", np.Name)
		}
		logger.Printf("seeded parameter %q (%s)", p.Name, p.ID)
	}

	// school-level rubric used to grade the overall score
	overall := cli.conf.Hpc.OverallRubricName
	if _, err := cli.paramSvc.AddRubricVersion(overall, param.DefaultLevels(0, 100), true); err != nil {
		return errors.Wrap(err, "adding overall rubric")
	}
	logger.Printf("seeded overall rubric %q", overall)

	return cli.paramSvc.CheckWeightageBounds()
}
