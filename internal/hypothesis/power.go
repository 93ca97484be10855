package hypothesis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"anastat/domain/stats"
	"anastat/internal/errors"
)

// targetPower is the conventional planning power for sample size
// recommendations.
const targetPower = 0.8

// Power estimates the achieved power of a two-sided two-sample t-test
// at the observed effect size and per-group n, plus the per-group n
// required to reach the planning power. Uses the normal approximation.
func Power(effectSize, alpha float64, perGroupN int) (stats.PowerAnalysis, error) {
	if perGroupN < 2 {
		return stats.PowerAnalysis{}, errors.DegenerateInput("power analysis needs at least 2 observations per group")
	}
	if alpha <= 0 || alpha >= 1 {
		return stats.PowerAnalysis{}, errors.InvalidInput("alpha must be in (0, 1)")
	}

	absEffect := math.Abs(effectSize)
	zAlpha := distuv.UnitNormal.Quantile(1 - alpha/2)

	ncp := absEffect * math.Sqrt(float64(perGroupN)/2)
	power := 1 - distuv.UnitNormal.CDF(zAlpha-ncp) +
		distuv.UnitNormal.CDF(-zAlpha-ncp)

	requiredN := perGroupN
	if absEffect > 0 {
		zPower := distuv.UnitNormal.Quantile(targetPower)
		exact := 2 * math.Pow((zAlpha+zPower)/absEffect, 2)
		requiredN = int(math.Ceil(exact))
	}

	return stats.PowerAnalysis{
		EffectSize:   effectSize,
		Alpha:        alpha,
		Power:        power,
		RequiredN:    requiredN,
		CurrentN:     perGroupN,
		Underpowered: power < targetPower,
	}, nil
}
