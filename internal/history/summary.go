package history

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/0xlemi/riyaz/internal/pitch"
)

// Summary aggregates a run of judgments
type Summary struct {
	Count         int
	MeanAccuracy  float64
	MeanAbsCents  float64
	CentsStdDev   float64 // Sample standard deviation of the signed cents
	DominantNote  string  // Most frequent note with octave, e.g. "A4"
	DominantShare float64 // Fraction of judgments on the dominant note
}

// Summarize computes statistics over js
func Summarize(js []pitch.Judgment) Summary {
	if len(js) == 0 {
		return Summary{}
	}

	accuracy := make([]float64, len(js))
	cents := make([]float64, len(js))
	absCents := make([]float64, len(js))
	counts := make(map[string]int)
	var order []string
	for i, j := range js {
		accuracy[i] = j.Accuracy
		cents[i] = j.Cents
		absCents[i] = math.Abs(j.Cents)

		key := noteKey(j)
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	// Ties go to the note heard first
	dominant := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[dominant] {
			dominant = key
		}
	}

	s := Summary{
		Count:         len(js),
		MeanAccuracy:  stat.Mean(accuracy, nil),
		MeanAbsCents:  stat.Mean(absCents, nil),
		DominantNote:  dominant,
		DominantShare: float64(counts[dominant]) / float64(len(js)),
	}
	if len(js) > 1 {
		s.CentsStdDev = stat.StdDev(cents, nil)
	}
	return s
}

// Summary summarises the buffer's current contents
func (b *Buffer) Summary() Summary {
	return Summarize(b.Snapshot())
}

func noteKey(j pitch.Judgment) string {
	return j.Name + strconv.Itoa(j.Octave)
}
