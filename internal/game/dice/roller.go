package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger so every roll leaves an audit record at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// RollExpr parses expr and rolls it, logging the result.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	result := Roll(e, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// Chance reports whether a uniform draw falls at or below p, logging the draw.
// A draw strictly greater than p fails.
func (r *Roller) Chance(label string, p float64) bool {
	draw := r.src.Float64()
	ok := draw <= p
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Float64("draw", draw),
		zap.Float64("threshold", p),
		zap.Bool("success", ok),
	)
	return ok
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }
