package adjust

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domadjust "gsradjust/domain/adjust"
	"gsradjust/domain/core"
	"gsradjust/domain/result"
)

func realTable(recs ...result.Record) *result.Table {
	for i := range recs {
		if recs[i].RunID == "" {
			recs[i].RunID = result.RunReal
		}
		if recs[i].PathwaySize == 0 {
			recs[i].PathwaySize = 10
		}
		if recs[i].ToolName == "" {
			recs[i].ToolName = "magma"
		}
		recs[i].P = math.NaN()
		recs[i].Effect = math.NaN()
		recs[i].SE = math.NaN()
	}
	return &result.Table{Records: recs}
}

func randomTable(runID string, stats map[string]float64) *result.Table {
	t := &result.Table{}
	for id, s := range stats {
		t.Records = append(t.Records, result.Record{
			PathwayID:   id,
			PathwaySize: 10,
			Stat:        s,
			ToolName:    "magma",
			RunID:       runID,
			P:           math.NaN(),
			Effect:      math.NaN(),
			SE:          math.NaN(),
		})
	}
	return t
}

// Worked scenario: GO:1 with stat=2.0 against null [1.0, 3.0, 1.5]. Only 3.0
// ties or exceeds, so c=1, K=3 and empirical_p=(1+1)/(3+1)=0.5.
func TestAdjust_WorkedExample(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(result.Record{PathwayID: "GO:1", Stat: 2.0})
	randoms := []*result.Table{
		randomTable("random1", map[string]float64{"GO:1": 1.0}),
		randomTable("random2", map[string]float64{"GO:1": 3.0}),
		randomTable("random3", map[string]float64{"GO:1": 1.5}),
	}

	res, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "GO:1", rec.PathwayID)
	assert.Equal(t, 3, rec.NRandomObs)
	assert.InDelta(t, 0.5, rec.EmpiricalP, 1e-12)
	assert.InDelta(t, 1.8333333333, rec.NullMean, 1e-9)
	assert.InDelta(t, 1.0408, rec.NullSD, 1e-4)
	assert.InDelta(t, 0.1601, rec.ZScore, 1e-4)
	assert.Equal(t, 1, res.Summary.PathwaysAnalyzed)
	assert.Equal(t, 3, res.Summary.RandomRuns)
}

// A real pathway absent from every random table is excluded with a warning;
// the run still succeeds for the remaining pathways.
func TestAdjust_PathwayWithoutNullIsDropped(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(
		result.Record{PathwayID: "GO:1", Stat: 2.0},
		result.Record{PathwayID: "GO:orphan", Stat: 5.0},
	)
	randoms := []*result.Table{
		randomTable("random1", map[string]float64{"GO:1": 1.0}),
		randomTable("random2", map[string]float64{"GO:1": 3.0}),
	}

	res, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "GO:1", res.Records[0].PathwayID)
	assert.Equal(t, 1, res.Summary.PathwaysDropped)

	var dropped bool
	for _, d := range res.Diagnostics {
		if d.Code == domadjust.CodePathwayDropped && d.PathwayID == "GO:orphan" {
			dropped = true
		}
	}
	assert.True(t, dropped, "expected a pathway_dropped diagnostic for GO:orphan")
}

// A constant null distribution still yields an empirical p; only the z-score
// is left unset.
func TestAdjust_ConstantNullLeavesZScoreUnset(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(result.Record{PathwayID: "GO:1", Stat: 2.0})
	randoms := []*result.Table{
		randomTable("random1", map[string]float64{"GO:1": 2.0}),
		randomTable("random2", map[string]float64{"GO:1": 2.0}),
		randomTable("random3", map[string]float64{"GO:1": 2.0}),
	}

	res, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.False(t, rec.HasZScore())
	assert.Equal(t, 0.0, rec.NullSD)
	// All three tie with the real stat, so c=3 and p=(1+3)/(3+1)=1.
	assert.InDelta(t, 1.0, rec.EmpiricalP, 1e-12)

	var undefined bool
	for _, d := range res.Diagnostics {
		if d.Code == domadjust.CodeUndefinedZScore {
			undefined = true
		}
	}
	assert.True(t, undefined)
}

func TestAdjust_NoRandomTablesIsFatal(t *testing.T) {
	eng := NewEngine(nil)
	real := realTable(result.Record{PathwayID: "GO:1", Stat: 2.0})

	_, err := eng.Adjust(real, nil, "magma")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoNullData))
}

// Rows labeled "real" inside the random pool are filtered, not errored, and
// contribute nothing to the null.
func TestAdjust_RealRowsInPoolAreFiltered(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(result.Record{PathwayID: "GO:1", Stat: 2.0})
	mixed := randomTable("random1", map[string]float64{"GO:1": 1.0})
	mixed.Records = append(mixed.Records, result.Record{
		PathwayID: "GO:1", PathwaySize: 10, Stat: 99.0,
		ToolName: "magma", RunID: result.RunReal,
	})

	res, err := eng.Adjust(real, []*result.Table{mixed}, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Records[0].NRandomObs)
}

// Rows in the real table not labeled "real" are skipped with a diagnostic.
func TestAdjust_MislabeledRealRowSkipped(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(
		result.Record{PathwayID: "GO:1", Stat: 2.0},
		result.Record{PathwayID: "GO:2", Stat: 1.0, RunID: "random7"},
	)
	randoms := []*result.Table{
		randomTable("random1", map[string]float64{"GO:1": 1.0, "GO:2": 0.5}),
	}

	res, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "GO:1", res.Records[0].PathwayID)

	var mislabeled bool
	for _, d := range res.Diagnostics {
		if d.Code == domadjust.CodeMislabeledRow && d.PathwayID == "GO:2" {
			mislabeled = true
		}
	}
	assert.True(t, mislabeled)
}

// empirical_p stays within [1/(K+1), 1] and never improves as the real stat
// weakens against a fixed null.
func TestAdjust_EmpiricalPBoundsAndMonotonicity(t *testing.T) {
	null := map[string]float64{"GO:1": 0.5}
	nullTables := []*result.Table{
		randomTable("random1", null),
		randomTable("random2", map[string]float64{"GO:1": 1.5}),
		randomTable("random3", map[string]float64{"GO:1": 2.5}),
		randomTable("random4", map[string]float64{"GO:1": 3.5}),
	}
	k := 4

	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	prev := 0.0
	for _, s := range []float64{10, 3, 2, 1, 0} {
		real := realTable(result.Record{PathwayID: "GO:1", Stat: s})
		res, err := eng.Adjust(real, nullTables, "magma")
		require.NoError(t, err)
		require.Len(t, res.Records, 1)

		p := res.Records[0].EmpiricalP
		assert.GreaterOrEqual(t, p, 1.0/float64(k+1))
		assert.LessOrEqual(t, p, 1.0)
		assert.GreaterOrEqual(t, p, prev, "lower stat must not get a better p")
		prev = p
	}
}

// Feeding the engine's own output back as the real table against the same
// pool reproduces identical empirical p-values.
func TestAdjust_Idempotence(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(
		result.Record{PathwayID: "GO:1", Stat: 2.0},
		result.Record{PathwayID: "GO:2", Stat: 0.3},
		result.Record{PathwayID: "GO:3", Stat: 1.7},
	)
	randoms := []*result.Table{
		randomTable("random1", map[string]float64{"GO:1": 1.0, "GO:2": 0.9, "GO:3": 2.2}),
		randomTable("random2", map[string]float64{"GO:1": 3.0, "GO:2": 0.1, "GO:3": 1.1}),
		randomTable("random3", map[string]float64{"GO:1": 1.5, "GO:2": 0.4, "GO:3": 0.8}),
	}

	first, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)

	// Round-trip: rebuild a real table from the adjusted output.
	var again []result.Record
	for _, rec := range first.Records {
		again = append(again, result.Record{
			PathwayID: rec.PathwayID, PathwaySize: rec.PathwaySize,
			Stat: rec.Stat, ToolName: rec.ToolName, RunID: rec.RunID,
			P: math.NaN(), Effect: math.NaN(), SE: math.NaN(),
		})
	}
	second, err := eng.Adjust(&result.Table{Records: again}, randoms, "magma")
	require.NoError(t, err)

	require.Equal(t, len(first.Records), len(second.Records))
	for i := range first.Records {
		assert.Equal(t, first.Records[i].PathwayID, second.Records[i].PathwayID)
		assert.Equal(t, first.Records[i].EmpiricalP, second.Records[i].EmpiricalP)
	}
}

// Output is sorted ascending by empirical p and FDR dominates the raw p.
func TestAdjust_SortedOutputAndFDRDominance(t *testing.T) {
	eng := NewEngine(nil)
	eng.MinRandomRuns = 1
	eng.MinPathwayObs = 1

	real := realTable(
		result.Record{PathwayID: "GO:weak", Stat: 0.1},
		result.Record{PathwayID: "GO:strong", Stat: 9.0},
		result.Record{PathwayID: "GO:mid", Stat: 1.2},
	)
	stats := []map[string]float64{
		{"GO:weak": 1.0, "GO:strong": 1.0, "GO:mid": 1.0},
		{"GO:weak": 2.0, "GO:strong": 2.0, "GO:mid": 2.0},
		{"GO:weak": 0.5, "GO:strong": 0.5, "GO:mid": 0.5},
		{"GO:weak": 1.5, "GO:strong": 1.5, "GO:mid": 1.5},
	}
	var randoms []*result.Table
	for i, m := range stats {
		randoms = append(randoms, randomTable("random"+string(rune('1'+i)), m))
	}

	res, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	assert.Equal(t, "GO:strong", res.Records[0].PathwayID)
	for i := 1; i < len(res.Records); i++ {
		assert.GreaterOrEqual(t, res.Records[i].EmpiricalP, res.Records[i-1].EmpiricalP)
	}
	for _, rec := range res.Records {
		assert.GreaterOrEqual(t, rec.FDR, rec.EmpiricalP)
		assert.LessOrEqual(t, rec.FDR, 1.0)
	}
}

// Fewer than the recommended number of random runs raises a warning but the
// computation proceeds.
func TestAdjust_FewRunsWarns(t *testing.T) {
	eng := NewEngine(nil) // default MinRandomRuns = 100

	real := realTable(result.Record{PathwayID: "GO:1", Stat: 2.0})
	randoms := []*result.Table{
		randomTable("random1", map[string]float64{"GO:1": 1.0}),
	}

	res, err := eng.Adjust(real, randoms, "magma")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	var warned bool
	for _, d := range res.Diagnostics {
		if d.Code == domadjust.CodeInsufficientNullRuns {
			warned = true
		}
	}
	assert.True(t, warned)
}
