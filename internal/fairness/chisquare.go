package fairness

import "math"

// chiSquareSurvival returns P(X >= x) for a chi-square distribution
// with df degrees of freedom: the upper regularized incomplete gamma
// Q(df/2, x/2).
func chiSquareSurvival(x float64, df int) float64 {
	if x <= 0 {
		return 1
	}
	return gammaQ(float64(df)/2, x/2)
}

const (
	gammaMaxIterations = 500
	gammaEpsilon       = 1e-14
)

// gammaQ computes the upper regularized incomplete gamma function
// Q(a, x) = Γ(a, x)/Γ(a), switching between the series expansion and
// the continued fraction at the usual x = a+1 boundary.
func gammaQ(a, x float64) float64 {
	if x < 0 || a <= 0 {
		return math.NaN()
	}
	if x == 0 {
		return 1
	}
	if x < a+1 {
		return 1 - gammaPSeries(a, x)
	}
	return gammaQFraction(a, x)
}

// gammaPSeries evaluates P(a, x) by its power series, accurate for
// x < a+1.
func gammaPSeries(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	ap := a
	sum := 1 / a
	term := sum
	for i := 0; i < gammaMaxIterations; i++ {
		ap++
		term *= x / ap
		sum += term
		if math.Abs(term) < math.Abs(sum)*gammaEpsilon {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

// gammaQFraction evaluates Q(a, x) by its continued fraction using the
// modified Lentz method, accurate for x >= a+1.
func gammaQFraction(a, x float64) float64 {
	lg, _ := math.Lgamma(a)

	tiny := math.SmallestNonzeroFloat64 * 1e10
	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIterations; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		delta := d * c
		h *= delta
		if math.Abs(delta-1) < gammaEpsilon {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lg) * h
}
