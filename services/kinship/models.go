package kinship

import (
	"math"

	"github.com/G2Lab/PrecisionChain/models/constants"
	rel "github.com/G2Lab/PrecisionChain/models/constants/relationship"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// bivariate Gaussian over (AGMR, HGMR) for one relationship class
type model struct {
	relationship constants.Relationship
	mean         [2]float64
	normal       *distmv.Normal
}

// newModel builds the density from standard deviations and correlation.
func newModel(r constants.Relationship, mean [2]float64, sdAgmr float64, sdHgmr float64, corr float64) model {
	cov := sdAgmr * sdHgmr * corr
	sigma := mat.NewSymDense(2, []float64{
		sdAgmr * sdAgmr, cov,
		cov, sdHgmr * sdHgmr,
	})

	normal, ok := distmv.NewNormal(mean[:], sigma, nil)
	if !ok {
		panic("kinship: covariance of " + string(r) + " is not positive definite")
	}
	return model{relationship: r, mean: mean, normal: normal}
}

// Second degree relatives carry a correlation term in the upper triangle
// only; the density is evaluated from the lower triangle, so the
// covariance is effectively diagonal.
var relationshipModels = []model{
	newModel(rel.Identical, [2]float64{0, 0}, 0.01, 0.38, 0.317),
	newModel(rel.ParentOffspring, [2]float64{0.04, 0.02}, 0.07, 1.47, 0.104),
	newModel(rel.FullSiblings, [2]float64{0.36, 0.1}, 1.02, 2.32, 0.784),
	newModel(rel.SecondDegree, [2]float64{0.40, 0.15}, 1.35, 1.10, 0),
	newModel(rel.ThirdDegree, [2]float64{0.44, 0.19}, 1.35, 0.96, 0.830),
	newModel(rel.Unrelated, [2]float64{0.54, 0.22}, 1.35, 0.96, 0.830),
}

func unrelatedMean() [2]float64 {
	return relationshipModels[len(relationshipModels)-1].mean
}

// Likelihoods evaluates every relationship density at (agmr, hgmr).
func Likelihoods(agmr float64, hgmr float64) map[constants.Relationship]float64 {
	x := []float64{agmr, hgmr}
	likelihoods := make(map[constants.Relationship]float64, len(relationshipModels))
	for _, m := range relationshipModels {
		likelihoods[m.relationship] = m.normal.Prob(x)
	}
	return likelihoods
}

// MostLikely is the plain argmax over the relationship densities, ties
// going to the closer relationship.
func MostLikely(likelihoods map[constants.Relationship]float64) constants.Relationship {
	best := rel.Ordered[0]
	bestLikelihood := math.Inf(-1)
	for _, r := range rel.Ordered {
		if likelihoods[r] > bestLikelihood {
			best = r
			bestLikelihood = likelihoods[r]
		}
	}
	return best
}

// Classify labels a pair. It is MostLikely except that a pair at or past
// the unrelated mean on both axes is unrelated, where the wide third degree
// density would otherwise win; the label can then differ from the argmax
// of the returned likelihoods.
func Classify(agmr float64, hgmr float64) (constants.Relationship, map[constants.Relationship]float64) {
	likelihoods := Likelihoods(agmr, hgmr)

	floor := unrelatedMean()
	if agmr >= floor[0] && hgmr >= floor[1] {
		return rel.Unrelated, likelihoods
	}
	return MostLikely(likelihoods), likelihoods
}
