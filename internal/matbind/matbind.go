// Package matbind checks that renderable surface prims resolve an active
// material.
package matbind

import (
	"context"
	"errors"
	"fmt"
	"path"

	"sceneqc/internal/report"
	"sceneqc/internal/scene"
)

const CheckName = "material-binding"

// Resolution is the material a prim ends up bound to.
type Resolution struct {
	// Material is the target path; empty when nothing is bound.
	Material string
	// From is the prim carrying the winning binding, the prim itself or an
	// ancestor.
	From string
	// Exists is false when the target does not name a prim on the stage.
	Exists bool
	Active bool
}

// Resolve finds the binding nearest to prim, walking up through its
// ancestors, and looks the target up on stage.
func Resolve(stage scene.Stage, prim scene.Prim) (Resolution, error) {
	var res Resolution
	for p := prim.Path(); ; p = path.Dir(p) {
		holder := prim
		if p != prim.Path() {
			var err error
			if holder, err = stage.Prim(p); err != nil {
				return Resolution{}, fmt.Errorf("ancestor %s: %w", p, err)
			}
		}
		if b, ok := holder.MaterialBinding(); ok && b.Material != "" {
			res.Material, res.From = b.Material, p
			break
		}
		if parent := path.Dir(p); parent == p || parent == stage.Root() {
			return res, nil
		}
	}
	target, err := stage.Prim(res.Material)
	switch {
	case errors.Is(err, scene.ErrPrimNotFound):
		return res, nil
	case err != nil:
		return Resolution{}, fmt.Errorf("material %s: %w", res.Material, err)
	}
	res.Exists = true
	res.Active = target.Active()
	return res, nil
}

// Check reports mesh and subdiv prims without an active bound material.
type Check struct{}

func (Check) Name() string { return CheckName }

func (Check) Run(_ context.Context, stage scene.Stage, prim scene.Prim) report.Outcome {
	switch prim.Kind() {
	case scene.KindMesh, scene.KindSubdiv:
	default:
		return report.Outcome{NotApplicable: true, SkipReason: fmt.Sprintf("no material binding rule for kind %q", prim.Kind())}
	}
	res, err := Resolve(stage, prim)
	if err != nil {
		return report.Outcome{Errors: []string{fmt.Sprintf("%s: %v", CheckName, err)}}
	}
	f := report.Finding{
		Path:     prim.Path(),
		Check:    CheckName,
		Time:     scene.Default(),
		Expected: 1,
		Severity: report.SeverityError,
	}
	switch {
	case res.Material == "":
		f.Reason = report.ReasonMaterialUnbound
		f.Message = fmt.Sprintf("no material binding on %s or its ancestors", prim.Path())
	case !res.Exists:
		f.Reason = report.ReasonMaterialUnbound
		f.Message = fmt.Sprintf("material %s bound on %s does not exist", res.Material, res.From)
	case !res.Active:
		f.Reason = report.ReasonMaterialInactive
		f.Message = fmt.Sprintf("material %s bound on %s is inactive", res.Material, res.From)
	default:
		return report.Outcome{}
	}
	return report.Outcome{Findings: []report.Finding{f}}
}
