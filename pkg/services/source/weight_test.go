package source

import (
	"testing"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestWeight(t *testing.T) {
	t.Run("gutenberg-richter counts magnitude bins", func(t *testing.T) {
		src := domain.SeismicSource{
			Kind: domain.SimpleFaultSource,
			MFD:  domain.MFD{MinMag: 5.0, MaxMag: 6.0, BinWidth: 0.1},
		}
		assert.Equal(t, 10.0, Weight(src))
	})

	t.Run("incremental counts occurrence rates", func(t *testing.T) {
		src := domain.SeismicSource{
			Kind: domain.AreaSource,
			MFD:  domain.MFD{OccurRates: []float64{0.1, 0.2, 0.3}},
		}
		assert.Equal(t, 3.0, Weight(src))
	})

	t.Run("point sources are down-weighted", func(t *testing.T) {
		fault := domain.SeismicSource{
			Kind: domain.SimpleFaultSource,
			MFD:  domain.MFD{MinMag: 5.0, MaxMag: 6.0, BinWidth: 0.1},
		}
		point := fault
		point.Kind = domain.PointSource

		assert.InDelta(t, Weight(fault)*PointSourceWeight, Weight(point), 1e-12)
	})

	t.Run("at least one bin", func(t *testing.T) {
		src := domain.SeismicSource{
			Kind: domain.SimpleFaultSource,
			MFD:  domain.MFD{MinMag: 5.0, MaxMag: 5.01, BinWidth: 0.1},
		}
		assert.Equal(t, 1.0, Weight(src))
	})
}

func TestCollectInfo(t *testing.T) {
	sources := []domain.SeismicSource{
		{ID: "1", Kind: domain.SimpleFaultSource, TectonicRegionType: domain.TRTStableShallowCrust,
			MFD: domain.MFD{MinMag: 5.0, MaxMag: 6.0, BinWidth: 0.1}},
		{ID: "2", Kind: domain.SimpleFaultSource, TectonicRegionType: domain.TRTActiveShallowCrust,
			MFD: domain.MFD{MinMag: 5.0, MaxMag: 6.0, BinWidth: 0.1}},
		{ID: "3", Kind: domain.SimpleFaultSource, TectonicRegionType: domain.TRTActiveShallowCrust,
			MFD: domain.MFD{OccurRates: []float64{0.1, 0.2}}},
	}

	info := CollectInfo(sources)
	assert.Equal(t, []domain.SourceInfo{
		{TRT: domain.TRTActiveShallowCrust, NumSources: 2, TotalWeight: 12.0},
		{TRT: domain.TRTStableShallowCrust, NumSources: 1, TotalWeight: 10.0},
	}, info)
}
