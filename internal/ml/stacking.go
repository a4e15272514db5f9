package ml

import (
	"fmt"
	"math"

	"churn-predictor/internal/common"

	"gonum.org/v1/gonum/floats"
)

// Estimator kinds understood by the stacking loader.
const (
	KindLogistic         = "logistic"
	KindTree             = "tree"
	KindForest           = "forest"
	KindGradientBoosting = "gradient_boosting"
)

// TreeParams is a fitted binary decision tree in flattened array form. Leaf
// nodes have children_left == -1. For classification trees value holds the
// positive-class probability, for boosting trees the raw leaf output.
type TreeParams struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

// EstimatorParams is the exported form of one base or meta estimator.
type EstimatorParams struct {
	Name         string       `json:"name,omitempty"`
	Kind         string       `json:"kind"`
	NFeatures    int          `json:"n_features,omitempty"`
	Coef         []float64    `json:"coef,omitempty"`
	Intercept    float64      `json:"intercept,omitempty"`
	Tree         *TreeParams  `json:"tree,omitempty"`
	Trees        []TreeParams `json:"trees,omitempty"`
	LearningRate float64      `json:"learning_rate,omitempty"`
	Init         float64      `json:"init,omitempty"`
}

// StackingParams is the exported form of a fitted stacking classifier.
type StackingParams struct {
	Estimators     []EstimatorParams `json:"estimators"`
	FinalEstimator EstimatorParams   `json:"final_estimator"`
	Passthrough    bool              `json:"passthrough"`
	Threshold      float64           `json:"threshold"`
}

// estimator yields the positive-class probability for one input row.
type estimator interface {
	width() int
	proba(x []float64) float64
}

type logistic struct {
	coef      []float64
	intercept float64
}

func (l *logistic) width() int { return len(l.coef) }

func (l *logistic) proba(x []float64) float64 {
	return sigmoid(floats.Dot(l.coef, x) + l.intercept)
}

type tree struct {
	left, right []int
	feature     []int
	threshold   []float64
	value       []float64
}

// leaf walks from the root; x[feature] <= threshold goes left.
func (t *tree) leaf(x []float64) float64 {
	node := 0
	for t.left[node] != -1 {
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.value[node]
}

type singleTree struct {
	n int
	t *tree
}

func (s *singleTree) width() int                { return s.n }
func (s *singleTree) proba(x []float64) float64 { return clamp01(s.t.leaf(x)) }

type forest struct {
	n     int
	trees []*tree
}

func (f *forest) width() int { return f.n }

func (f *forest) proba(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.leaf(x)
	}
	return clamp01(sum / float64(len(f.trees)))
}

type boosting struct {
	n            int
	trees        []*tree
	learningRate float64
	init         float64
}

func (b *boosting) width() int { return b.n }

func (b *boosting) proba(x []float64) float64 {
	raw := b.init
	for _, t := range b.trees {
		raw += b.learningRate * t.leaf(x)
	}
	return sigmoid(raw)
}

func newEstimator(p EstimatorParams) (estimator, error) {
	switch p.Kind {
	case KindLogistic:
		if len(p.Coef) == 0 {
			return nil, fmt.Errorf("logistic estimator has no coefficients")
		}
		if p.NFeatures != 0 && p.NFeatures != len(p.Coef) {
			return nil, fmt.Errorf("logistic estimator declares %d features but has %d coefficients", p.NFeatures, len(p.Coef))
		}
		coef := make([]float64, len(p.Coef))
		copy(coef, p.Coef)
		return &logistic{coef: coef, intercept: p.Intercept}, nil

	case KindTree:
		if p.Tree == nil {
			return nil, fmt.Errorf("tree estimator has no tree")
		}
		t, err := newTree(*p.Tree, p.NFeatures)
		if err != nil {
			return nil, err
		}
		return &singleTree{n: p.NFeatures, t: t}, nil

	case KindForest, KindGradientBoosting:
		if len(p.Trees) == 0 {
			return nil, fmt.Errorf("%s estimator has no trees", p.Kind)
		}
		trees := make([]*tree, len(p.Trees))
		for i, tp := range p.Trees {
			t, err := newTree(tp, p.NFeatures)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			trees[i] = t
		}
		if p.Kind == KindForest {
			return &forest{n: p.NFeatures, trees: trees}, nil
		}
		if p.LearningRate <= 0 {
			return nil, fmt.Errorf("gradient boosting learning rate must be positive, got %v", p.LearningRate)
		}
		return &boosting{n: p.NFeatures, trees: trees, learningRate: p.LearningRate, init: p.Init}, nil
	}
	return nil, fmt.Errorf("unknown estimator kind %q", p.Kind)
}

// newTree checks that the arrays describe a tree over nFeatures inputs that
// always terminates: every child index is greater than its parent's.
func newTree(p TreeParams, nFeatures int) (*tree, error) {
	if nFeatures <= 0 {
		return nil, fmt.Errorf("tree estimator must declare n_features")
	}
	n := len(p.ChildrenLeft)
	if n == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	if len(p.ChildrenRight) != n || len(p.Feature) != n || len(p.Threshold) != n || len(p.Value) != n {
		return nil, fmt.Errorf("tree arrays have inconsistent lengths")
	}
	for i := 0; i < n; i++ {
		l, r := p.ChildrenLeft[i], p.ChildrenRight[i]
		if l == -1 {
			if r != -1 {
				return nil, fmt.Errorf("node %d has only one child", i)
			}
			continue
		}
		if l <= i || r <= i || l >= n || r >= n {
			return nil, fmt.Errorf("node %d has invalid children %d, %d", i, l, r)
		}
		if p.Feature[i] < 0 || p.Feature[i] >= nFeatures {
			return nil, fmt.Errorf("node %d splits on feature %d, tree has %d", i, p.Feature[i], nFeatures)
		}
	}
	return &tree{
		left:      p.ChildrenLeft,
		right:     p.ChildrenRight,
		feature:   p.Feature,
		threshold: p.Threshold,
		value:     p.Value,
	}, nil
}

// StackingClassifier feeds the positive-class probability of each base
// estimator, optionally followed by the input itself, to a meta estimator.
type StackingClassifier struct {
	base        []estimator
	names       []string
	final       estimator
	passthrough bool
	inputDim    int
	threshold   float64
}

func NewStackingClassifier(params StackingParams) (*StackingClassifier, error) {
	if len(params.Estimators) == 0 {
		return nil, fmt.Errorf("stacking classifier has no base estimators")
	}

	threshold := params.Threshold
	if threshold == 0 {
		threshold = common.DefaultDecisionThreshold
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("decision threshold must be in (0, 1), got %v", threshold)
	}

	sc := &StackingClassifier{
		base:        make([]estimator, len(params.Estimators)),
		names:       make([]string, len(params.Estimators)),
		passthrough: params.Passthrough,
		threshold:   threshold,
	}
	for i, ep := range params.Estimators {
		e, err := newEstimator(ep)
		if err != nil {
			return nil, fmt.Errorf("base estimator %d (%s): %w", i, ep.Name, err)
		}
		if i == 0 {
			sc.inputDim = e.width()
		} else if e.width() != sc.inputDim {
			return nil, &DimensionMismatchError{Stage: "base estimator " + estimatorName(ep, i), Expected: sc.inputDim, Got: e.width()}
		}
		sc.base[i] = e
		sc.names[i] = estimatorName(ep, i)
	}

	final, err := newEstimator(params.FinalEstimator)
	if err != nil {
		return nil, fmt.Errorf("final estimator: %w", err)
	}
	if want := sc.metaDim(); final.width() != want {
		return nil, &DimensionMismatchError{Stage: "final estimator", Expected: want, Got: final.width()}
	}
	sc.final = final

	return sc, nil
}

func estimatorName(p EstimatorParams, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("%s_%d", p.Kind, i)
}

func (sc *StackingClassifier) metaDim() int {
	if sc.passthrough {
		return len(sc.base) + sc.inputDim
	}
	return len(sc.base)
}

func (sc *StackingClassifier) InputDim() int { return sc.inputDim }

// Threshold is the probability at or above which a customer is labelled churn.
func (sc *StackingClassifier) Threshold() float64 { return sc.threshold }

// EstimatorNames lists the base estimators in meta-feature order.
func (sc *StackingClassifier) EstimatorNames() []string { return sc.names }

// WithThreshold returns a copy deciding at t instead of the exported threshold.
func (sc *StackingClassifier) WithThreshold(t float64) (*StackingClassifier, error) {
	if t <= 0 || t >= 1 {
		return nil, fmt.Errorf("decision threshold must be in (0, 1), got %v", t)
	}
	cp := *sc
	cp.threshold = t
	return &cp, nil
}

func (sc *StackingClassifier) PredictWithProbability(x []float64) (bool, float64, error) {
	if len(x) != sc.inputDim {
		return false, 0, &DimensionMismatchError{Stage: "classifier", Expected: sc.inputDim, Got: len(x)}
	}

	meta := make([]float64, 0, sc.metaDim())
	for _, e := range sc.base {
		meta = append(meta, e.proba(x))
	}
	if sc.passthrough {
		meta = append(meta, x...)
	}

	prob := sc.final.proba(meta)
	if math.IsNaN(prob) {
		return false, 0, fmt.Errorf("meta estimator produced NaN probability")
	}
	return prob >= sc.threshold, prob, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
