package pitch

import (
	"fmt"
	"time"
)

// Basis selects which deviation feeds the accuracy score
type Basis string

const (
	// BasisGrid scores the deviation from the nearest grid note
	BasisGrid Basis = "grid"
	// BasisReference scores the deviation from the reference A itself
	BasisReference Basis = "reference"
)

// IsValid reports whether b is a known basis
func (b Basis) IsValid() bool {
	return b == BasisGrid || b == BasisReference
}

// Judgment is one pitched frame placed on the grid and scored
type Judgment struct {
	Note
	Accuracy   float64       // 0..100
	Confidence float64       // Estimator confidence, 0..1
	Seq        uint64        // Position in the session's judgment stream
	Time       time.Time     // Wall clock time of the judgment
	Offset     time.Duration // Stream position of the frame, when known
}

// String formats the judgment for logs and the analyze command
func (j Judgment) String() string {
	return fmt.Sprintf("%s%d (%s) %.2fHz %+.1f¢ %.1f%%", j.Name, j.Octave, j.Swara, j.Frequency, j.Cents, j.Accuracy)
}

// Judge maps estimates to notes and scores them
type Judge struct {
	mapper *Mapper
	basis  Basis
}

// NewJudge creates a judge. An empty basis means BasisGrid.
func NewJudge(mapper *Mapper, basis Basis) (*Judge, error) {
	if basis == "" {
		basis = BasisGrid
	}
	if !basis.IsValid() {
		return nil, fmt.Errorf("unknown accuracy basis %q", basis)
	}
	return &Judge{mapper: mapper, basis: basis}, nil
}

// Mapper returns the judge's note mapper
func (j *Judge) Mapper() *Mapper {
	return j.mapper
}

// Judge places a voiced estimate on the grid. It fails with
// ErrInvalidFrequency for NoPitch; callers skip those frames first.
func (j *Judge) Judge(estimate Estimate) (Judgment, error) {
	note, err := j.mapper.Map(estimate.Frequency)
	if err != nil {
		return Judgment{}, err
	}

	deviation := note.Cents
	if j.basis == BasisReference {
		deviation = note.ReferenceCents
	}

	return Judgment{
		Note:       note,
		Accuracy:   Score(deviation),
		Confidence: estimate.Confidence,
	}, nil
}
