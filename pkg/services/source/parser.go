package source

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
)

type xmlMFD struct {
	AValue   string `xml:"aValue,attr"`
	BValue   string `xml:"bValue,attr"`
	MinMag   string `xml:"minMag,attr"`
	MaxMag   string `xml:"maxMag,attr"`
	BinWidth string `xml:"binWidth,attr"`
	Rates    string `xml:"occurRates"`
}

type xmlSource struct {
	ID             string  `xml:"id,attr"`
	Name           string  `xml:"name,attr"`
	TectonicRegion string  `xml:"tectonicRegion,attr"`
	TGRMFD         *xmlMFD `xml:"truncGutenbergRichterMFD"`
	IncrementalMFD *xmlMFD `xml:"incrementalMFD"`
	MeshSpacing    string  `xml:"ruptureMeshSpacing"`
}

type xmlSourceModel struct {
	Name            string      `xml:"name,attr"`
	PointSources    []xmlSource `xml:"pointSource"`
	AreaSources     []xmlSource `xml:"areaSource"`
	SimpleFaults    []xmlSource `xml:"simpleFaultSource"`
	ComplexFaults   []xmlSource `xml:"complexFaultSource"`
	Characteristics []xmlSource `xml:"characteristicFaultSource"`
}

type xmlNrml struct {
	XMLName     xml.Name        `xml:"nrml"`
	SourceModel *xmlSourceModel `xml:"sourceModel"`
}

// ParseModel reads an NRML source model file into domain sources,
// validating each source as it goes.
func ParseModel(path string) (*domain.SourceModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source model %s: %w", path, err)
	}

	var doc xmlNrml
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse source model %s: %w", path, err)
	}
	if doc.SourceModel == nil {
		return nil, fmt.Errorf("source model %s: no sourceModel element", path)
	}

	model := &domain.SourceModel{Name: doc.SourceModel.Name, Path: path}
	groups := []struct {
		kind    domain.SourceKind
		sources []xmlSource
	}{
		{domain.PointSource, doc.SourceModel.PointSources},
		{domain.AreaSource, doc.SourceModel.AreaSources},
		{domain.SimpleFaultSource, doc.SourceModel.SimpleFaults},
		{domain.ComplexFaultSource, doc.SourceModel.ComplexFaults},
		{domain.CharacteristicFaultSource, doc.SourceModel.Characteristics},
	}

	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, raw := range group.sources {
			src, err := convertSource(raw, group.kind)
			if err != nil {
				return nil, fmt.Errorf("source model %s: %w", path, err)
			}
			if _, dup := seen[src.ID]; dup {
				return nil, fmt.Errorf("source model %s: duplicate source id %q", path, src.ID)
			}
			seen[src.ID] = struct{}{}
			model.Sources = append(model.Sources, src)
		}
	}
	if len(model.Sources) == 0 {
		return nil, fmt.Errorf("source model %s: no sources", path)
	}
	return model, nil
}

func convertSource(raw xmlSource, kind domain.SourceKind) (domain.SeismicSource, error) {
	src := domain.SeismicSource{
		ID:                 raw.ID,
		Name:               raw.Name,
		Kind:               kind,
		TectonicRegionType: raw.TectonicRegion,
		RuptureMeshSpacing: 2.0,
	}
	if raw.MeshSpacing != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw.MeshSpacing), 64)
		if err != nil {
			return src, fmt.Errorf("source %s: bad ruptureMeshSpacing: %w", raw.ID, err)
		}
		src.RuptureMeshSpacing = v
	}

	var err error
	switch {
	case raw.TGRMFD != nil:
		src.MFD, err = convertTGR(*raw.TGRMFD)
	case raw.IncrementalMFD != nil:
		src.MFD, err = convertIncremental(*raw.IncrementalMFD)
	default:
		err = fmt.Errorf("no magnitude-frequency distribution")
	}
	if err != nil {
		return src, fmt.Errorf("source %s: %w", raw.ID, err)
	}

	if err := src.Validate(); err != nil {
		return src, fmt.Errorf("source %s: %w", raw.ID, err)
	}
	return src, nil
}

func convertTGR(raw xmlMFD) (domain.MFD, error) {
	mfd := domain.MFD{BinWidth: 0.1}
	fields := []struct {
		name  string
		value string
		dst   *float64
	}{
		{"aValue", raw.AValue, &mfd.AVal},
		{"bValue", raw.BValue, &mfd.BVal},
		{"minMag", raw.MinMag, &mfd.MinMag},
		{"maxMag", raw.MaxMag, &mfd.MaxMag},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.value, 64)
		if err != nil {
			return mfd, fmt.Errorf("bad %s %q", f.name, f.value)
		}
		*f.dst = v
	}
	if mfd.MaxMag <= mfd.MinMag {
		return mfd, fmt.Errorf("maxMag %v must exceed minMag %v", mfd.MaxMag, mfd.MinMag)
	}
	return mfd, nil
}

func convertIncremental(raw xmlMFD) (domain.MFD, error) {
	mfd := domain.MFD{BinWidth: 0.1}
	if raw.BinWidth != "" {
		v, err := strconv.ParseFloat(raw.BinWidth, 64)
		if err != nil {
			return mfd, fmt.Errorf("bad binWidth %q", raw.BinWidth)
		}
		mfd.BinWidth = v
	}
	if raw.MinMag != "" {
		v, err := strconv.ParseFloat(raw.MinMag, 64)
		if err != nil {
			return mfd, fmt.Errorf("bad minMag %q", raw.MinMag)
		}
		mfd.MinMag = v
	}
	for _, f := range strings.Fields(raw.Rates) {
		rate, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return mfd, fmt.Errorf("bad occurRates value %q", f)
		}
		mfd.OccurRates = append(mfd.OccurRates, rate)
	}
	if len(mfd.OccurRates) == 0 {
		return mfd, fmt.Errorf("incrementalMFD without occurRates")
	}
	return mfd, nil
}
