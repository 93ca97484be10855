package distfit

import (
	"math"

	mfstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// family describes one candidate distribution: how to seed and bound
// its parameters, and how to evaluate its log-density and CDF.
type family struct {
	name       string
	paramNames []string
	// applicable rejects data the family cannot model at all.
	applicable func(data []float64) bool
	initial    func(data []float64) []float64
	lower      func(data []float64) []float64
	upper      func(data []float64) []float64
	logPDF     func(params []float64, x float64) float64
	cdf        func(params []float64, x float64) float64
}

// catalogue is the closed set of candidate families, in fixed order so
// fit reports are deterministic.
func catalogue() []family {
	return []family{
		normalFamily(),
		logNormalFamily(),
		exponentialFamily(),
		weibullFamily(),
		gammaFamily(),
		betaFamily(),
		gumbelFamily(),
		paretoFamily(),
		studentTFamily(),
		cauchyFamily(),
		johnsonSUFamily(),
		burrXIIFamily(),
	}
}

func dataMoments(data []float64) (mean, sd, minV, maxV, median float64) {
	mean, _ = mfstats.Mean(data)
	v, _ := mfstats.SampleVariance(data)
	sd = math.Sqrt(v)
	if sd == 0 {
		sd = 1e-6
	}
	minV, _ = mfstats.Min(data)
	maxV, _ = mfstats.Max(data)
	median, _ = mfstats.Median(data)
	return
}

func allPositive(data []float64) bool {
	for _, v := range data {
		if v <= 0 {
			return false
		}
	}
	return true
}

func allInUnitInterval(data []float64) bool {
	for _, v := range data {
		if v <= 0 || v >= 1 {
			return false
		}
	}
	return true
}

func normalFamily() family {
	return family{
		name:       "normal",
		paramNames: []string{"mu", "sigma"},
		applicable: func([]float64) bool { return true },
		initial: func(data []float64) []float64 {
			mean, sd, _, _, _ := dataMoments(data)
			return []float64{mean, sd}
		},
		lower: func(data []float64) []float64 {
			_, sd, minV, _, _ := dataMoments(data)
			return []float64{minV - 10*sd, sd * 1e-3}
		},
		upper: func(data []float64) []float64 {
			_, sd, _, maxV, _ := dataMoments(data)
			return []float64{maxV + 10*sd, sd * 100}
		},
		logPDF: func(p []float64, x float64) float64 {
			return distuv.Normal{Mu: p[0], Sigma: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.Normal{Mu: p[0], Sigma: p[1]}.CDF(x)
		},
	}
}

func logNormalFamily() family {
	return family{
		name:       "lognormal",
		paramNames: []string{"mu", "sigma"},
		applicable: allPositive,
		initial: func(data []float64) []float64 {
			logs := make([]float64, len(data))
			for i, v := range data {
				logs[i] = math.Log(v)
			}
			mean, sd, _, _, _ := dataMoments(logs)
			return []float64{mean, sd}
		},
		lower: func(data []float64) []float64 { return []float64{-50, 1e-6} },
		upper: func(data []float64) []float64 { return []float64{50, 20} },
		logPDF: func(p []float64, x float64) float64 {
			return distuv.LogNormal{Mu: p[0], Sigma: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.LogNormal{Mu: p[0], Sigma: p[1]}.CDF(x)
		},
	}
}

func exponentialFamily() family {
	return family{
		name:       "exponential",
		paramNames: []string{"rate"},
		applicable: allPositive,
		initial: func(data []float64) []float64 {
			mean, _, _, _, _ := dataMoments(data)
			return []float64{1 / mean}
		},
		lower: func([]float64) []float64 { return []float64{1e-10} },
		upper: func(data []float64) []float64 {
			mean, _, _, _, _ := dataMoments(data)
			return []float64{1000 / mean}
		},
		logPDF: func(p []float64, x float64) float64 {
			return distuv.Exponential{Rate: p[0]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.Exponential{Rate: p[0]}.CDF(x)
		},
	}
}

func weibullFamily() family {
	return family{
		name:       "weibull",
		paramNames: []string{"shape", "scale"},
		applicable: allPositive,
		initial: func(data []float64) []float64 {
			mean, _, _, _, _ := dataMoments(data)
			return []float64{1.2, mean}
		},
		lower: func([]float64) []float64 { return []float64{0.05, 1e-8} },
		upper: func(data []float64) []float64 {
			_, _, _, maxV, _ := dataMoments(data)
			return []float64{50, maxV * 10}
		},
		logPDF: func(p []float64, x float64) float64 {
			return distuv.Weibull{K: p[0], Lambda: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.Weibull{K: p[0], Lambda: p[1]}.CDF(x)
		},
	}
}

func gammaFamily() family {
	return family{
		name:       "gamma",
		paramNames: []string{"shape", "rate"},
		applicable: allPositive,
		initial: func(data []float64) []float64 {
			mean, sd, _, _, _ := dataMoments(data)
			v := sd * sd
			return []float64{mean * mean / v, mean / v}
		},
		lower: func([]float64) []float64 { return []float64{1e-3, 1e-8} },
		upper: func([]float64) []float64 { return []float64{1e4, 1e4} },
		logPDF: func(p []float64, x float64) float64 {
			return distuv.Gamma{Alpha: p[0], Beta: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.Gamma{Alpha: p[0], Beta: p[1]}.CDF(x)
		},
	}
}

func betaFamily() family {
	return family{
		name:       "beta",
		paramNames: []string{"alpha", "beta"},
		applicable: allInUnitInterval,
		initial: func(data []float64) []float64 {
			mean, sd, _, _, _ := dataMoments(data)
			v := sd * sd
			if v == 0 {
				v = 1e-6
			}
			common := mean*(1-mean)/v - 1
			if common <= 0 {
				common = 1
			}
			return []float64{mean * common, (1 - mean) * common}
		},
		lower: func([]float64) []float64 { return []float64{1e-3, 1e-3} },
		upper: func([]float64) []float64 { return []float64{1e3, 1e3} },
		logPDF: func(p []float64, x float64) float64 {
			return distuv.Beta{Alpha: p[0], Beta: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.Beta{Alpha: p[0], Beta: p[1]}.CDF(x)
		},
	}
}

func gumbelFamily() family {
	return family{
		name:       "gumbel",
		paramNames: []string{"location", "scale"},
		applicable: func([]float64) bool { return true },
		initial: func(data []float64) []float64 {
			mean, sd, _, _, _ := dataMoments(data)
			beta := sd * math.Sqrt(6) / math.Pi
			return []float64{mean - 0.5772156649*beta, beta}
		},
		lower: func(data []float64) []float64 {
			_, sd, minV, _, _ := dataMoments(data)
			return []float64{minV - 10*sd, sd * 1e-3}
		},
		upper: func(data []float64) []float64 {
			_, sd, _, maxV, _ := dataMoments(data)
			return []float64{maxV + 10*sd, sd * 100}
		},
		logPDF: func(p []float64, x float64) float64 {
			return distuv.GumbelRight{Mu: p[0], Beta: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.GumbelRight{Mu: p[0], Beta: p[1]}.CDF(x)
		},
	}
}

func paretoFamily() family {
	return family{
		name:       "pareto",
		paramNames: []string{"xm", "alpha"},
		applicable: allPositive,
		initial: func(data []float64) []float64 {
			_, _, minV, _, _ := dataMoments(data)
			sum := 0.0
			for _, v := range data {
				sum += math.Log(v / minV)
			}
			alpha := 1.0
			if sum > 0 {
				alpha = float64(len(data)) / sum
			}
			return []float64{minV, alpha}
		},
		lower: func(data []float64) []float64 {
			_, _, minV, _, _ := dataMoments(data)
			return []float64{minV * 1e-3, 0.01}
		},
		upper: func(data []float64) []float64 {
			_, _, minV, _, _ := dataMoments(data)
			// The scale cannot exceed the smallest observation.
			return []float64{minV, 100}
		},
		logPDF: func(p []float64, x float64) float64 {
			return distuv.Pareto{Xm: p[0], Alpha: p[1]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.Pareto{Xm: p[0], Alpha: p[1]}.CDF(x)
		},
	}
}

func studentTFamily() family {
	return family{
		name:       "student_t",
		paramNames: []string{"location", "scale", "df"},
		applicable: func(data []float64) bool { return len(data) >= 5 },
		initial: func(data []float64) []float64 {
			mean, sd, _, _, _ := dataMoments(data)
			return []float64{mean, sd, 5}
		},
		lower: func(data []float64) []float64 {
			_, sd, minV, _, _ := dataMoments(data)
			return []float64{minV - 10*sd, sd * 1e-3, 1.01}
		},
		upper: func(data []float64) []float64 {
			_, sd, _, maxV, _ := dataMoments(data)
			return []float64{maxV + 10*sd, sd * 100, 200}
		},
		logPDF: func(p []float64, x float64) float64 {
			return distuv.StudentsT{Mu: p[0], Sigma: p[1], Nu: p[2]}.LogProb(x)
		},
		cdf: func(p []float64, x float64) float64 {
			return distuv.StudentsT{Mu: p[0], Sigma: p[1], Nu: p[2]}.CDF(x)
		},
	}
}

// cauchyFamily is hand-rolled: the density has closed form and the
// location/scale parameterization matches the median and half-IQR.
func cauchyFamily() family {
	return family{
		name:       "cauchy",
		paramNames: []string{"location", "scale"},
		applicable: func([]float64) bool { return true },
		initial: func(data []float64) []float64 {
			q, err := mfstats.Quartile(data)
			_, _, _, _, median := dataMoments(data)
			scale := 1.0
			if err == nil && q.Q3 > q.Q1 {
				scale = (q.Q3 - q.Q1) / 2
			}
			return []float64{median, scale}
		},
		lower: func(data []float64) []float64 {
			_, sd, minV, _, _ := dataMoments(data)
			return []float64{minV - 10*sd, sd * 1e-4}
		},
		upper: func(data []float64) []float64 {
			_, sd, _, maxV, _ := dataMoments(data)
			return []float64{maxV + 10*sd, sd * 100}
		},
		logPDF: func(p []float64, x float64) float64 {
			z := (x - p[0]) / p[1]
			return -math.Log(math.Pi*p[1]) - math.Log1p(z*z)
		},
		cdf: func(p []float64, x float64) float64 {
			return 0.5 + math.Atan((x-p[0])/p[1])/math.Pi
		},
	}
}

// johnsonSUFamily maps data through an inverse hyperbolic sine to a
// standard normal, giving a four-parameter unbounded family.
func johnsonSUFamily() family {
	return family{
		name:       "johnson_su",
		paramNames: []string{"gamma", "delta", "xi", "lambda"},
		applicable: func(data []float64) bool { return len(data) >= 8 },
		initial: func(data []float64) []float64 {
			_, sd, _, _, median := dataMoments(data)
			return []float64{0, 1, median, sd}
		},
		lower: func(data []float64) []float64 {
			_, sd, minV, _, _ := dataMoments(data)
			return []float64{-5, 0.05, minV - 10*sd, sd * 1e-3}
		},
		upper: func(data []float64) []float64 {
			_, sd, _, maxV, _ := dataMoments(data)
			return []float64{5, 20, maxV + 10*sd, sd * 100}
		},
		logPDF: func(p []float64, x float64) float64 {
			gamma, delta, xi, lambda := p[0], p[1], p[2], p[3]
			u := (x - xi) / lambda
			z := gamma + delta*math.Asinh(u)
			return math.Log(delta) - math.Log(lambda) -
				0.5*math.Log(2*math.Pi) - 0.5*math.Log(1+u*u) - 0.5*z*z
		},
		cdf: func(p []float64, x float64) float64 {
			gamma, delta, xi, lambda := p[0], p[1], p[2], p[3]
			z := gamma + delta*math.Asinh((x-xi)/lambda)
			return distuv.UnitNormal.CDF(z)
		},
	}
}

// burrXIIFamily is the three-parameter Burr type XII over positive data.
func burrXIIFamily() family {
	return family{
		name:       "burr_type_xii",
		paramNames: []string{"c", "k", "scale"},
		applicable: func(data []float64) bool {
			return allPositive(data) && len(data) >= 8
		},
		initial: func(data []float64) []float64 {
			_, _, _, _, median := dataMoments(data)
			return []float64{2, 2, median}
		},
		lower: func([]float64) []float64 { return []float64{0.05, 0.05, 1e-8} },
		upper: func(data []float64) []float64 {
			_, _, _, maxV, _ := dataMoments(data)
			return []float64{50, 50, maxV * 10}
		},
		logPDF: func(p []float64, x float64) float64 {
			c, k, s := p[0], p[1], p[2]
			if x <= 0 {
				return math.Inf(-1)
			}
			u := x / s
			return math.Log(c) + math.Log(k) - math.Log(s) +
				(c-1)*math.Log(u) - (k+1)*math.Log1p(math.Pow(u, c))
		},
		cdf: func(p []float64, x float64) float64 {
			c, k, s := p[0], p[1], p[2]
			if x <= 0 {
				return 0
			}
			return 1 - math.Pow(1+math.Pow(x/s, c), -k)
		},
	}
}
