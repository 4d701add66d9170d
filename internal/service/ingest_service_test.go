package service

import (
	"context"
	"errors"
	"testing"

	"gems-go/internal/apperr"
	"gems-go/internal/config"
	"gems-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// fakeGenesetRepo 是 GenesetRepository 的内存实现，按唯一性四元组存档。
type fakeGenesetRepo struct {
	docs    map[model.GenesetKey]*model.Geneset
	upserts int
	deleted []model.GenesetKey

	findDocs    []model.Geneset
	lastFilter  bson.M
	sharing     []model.Geneset
	lastSymbols []string
}

func newFakeGenesetRepo() *fakeGenesetRepo {
	return &fakeGenesetRepo{docs: make(map[model.GenesetKey]*model.Geneset)}
}

func (f *fakeGenesetRepo) EnsureIndexes(_ context.Context) error { return nil }

func (f *fakeGenesetRepo) Upsert(_ context.Context, gs *model.Geneset) error {
	f.upserts++
	cp := *gs
	f.docs[gs.Key()] = &cp
	return nil
}

func (f *fakeGenesetRepo) Find(_ context.Context, filter bson.M) ([]model.Geneset, error) {
	f.lastFilter = filter
	return f.findDocs, nil
}

func (f *fakeGenesetRepo) FindByKey(_ context.Context, key model.GenesetKey) (*model.Geneset, error) {
	gs, ok := f.docs[key]
	if !ok {
		return nil, nil
	}
	return gs, nil
}

func (f *fakeGenesetRepo) FindSharingSymbols(_ context.Context, symbols []string) ([]model.Geneset, error) {
	f.lastSymbols = symbols
	return f.sharing, nil
}

func (f *fakeGenesetRepo) Delete(_ context.Context, key model.GenesetKey) error {
	f.deleted = append(f.deleted, key)
	delete(f.docs, key)
	return nil
}

// newIngestFixture 用真实解析服务加内存仓库搭一条摄入链。
func newIngestFixture() (IngestService, *fakeGenesetRepo) {
	resolver := NewResolverService(resolverFixture(), 9606)
	repo := newFakeGenesetRepo()
	svc := NewIngestService(resolver, repo, nil, config.MinIOConfig{})
	return svc, repo
}

var testConstants = ConstantFields{Source: "Roche", TaxID: 9606, User: "kanga6"}

func TestIngestRejectsMissingSetName(t *testing.T) {
	svc, repo := newIngestFixture()

	_, err := svc.Ingest(context.Background(), []string{"desc", "genes"},
		[][]string{{"d", "TUBB2A"}}, testConstants, model.FormatNativeSymbol)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Zero(t, repo.upserts)
}

func TestIngestRejectsBadLastColumn(t *testing.T) {
	svc, _ := newIngestFixture()

	for _, header := range [][]string{
		{"setName", "genes", "desc"},
		{"setName", "genelist"},
		{},
	} {
		_, err := svc.Ingest(context.Background(), header, nil, testConstants, model.FormatNativeSymbol)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "header=%v", header)
	}
}

func TestIngestRejectsInvalidFormat(t *testing.T) {
	svc, _ := newIngestFixture()

	_, err := svc.Ingest(context.Background(), []string{"setName", "genes"},
		[][]string{{"S1", "TUBB2A"}}, testConstants, model.GeneFormat(9))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestIngestPlainGenes(t *testing.T) {
	svc, repo := newIngestFixture()

	diagnostics, err := svc.Ingest(context.Background(),
		[]string{"setName", "desc", "genes"},
		[][]string{{"Apoptosis", "apoptosis signature", "TUBB2A", "GAPDH"}},
		testConstants, model.FormatNativeSymbol)
	require.NoError(t, err)
	assert.Empty(t, diagnostics)

	key := model.GenesetKey{SetName: "Apoptosis", Source: "Roche", Subtype: "", User: "kanga6"}
	gs, ok := repo.docs[key]
	require.True(t, ok)
	assert.Equal(t, "apoptosis signature", gs.Desc)
	assert.False(t, gs.HasCoeff)
	assert.True(t, gs.HasQC)
	require.Len(t, gs.Genes, 2)
	assert.Equal(t, "7280", gs.Genes[0].Gene.NativeID)
	assert.Nil(t, gs.Genes[0].Coeff)
	assert.Equal(t, "2597", gs.Genes[1].Gene.NativeID)
}

func TestIngestCoefficients(t *testing.T) {
	svc, repo := newIngestFixture()

	diagnostics, err := svc.Ingest(context.Background(),
		[]string{"setName", "genes | logFC"},
		[][]string{{"Ranked", "TUBB2A | 1.5", "GAPDH | -0.25"}},
		testConstants, model.FormatNativeSymbol)
	require.NoError(t, err)
	assert.Empty(t, diagnostics)

	gs := repo.docs[model.GenesetKey{SetName: "Ranked", Source: "Roche", User: "kanga6"}]
	require.NotNil(t, gs)
	assert.True(t, gs.HasCoeff)
	assert.Equal(t, "logFC", gs.CoeffType)
	require.Len(t, gs.Genes, 2)
	require.NotNil(t, gs.Genes[0].Coeff)
	assert.Equal(t, 1.5, *gs.Genes[0].Coeff)
	require.NotNil(t, gs.Genes[1].Coeff)
	assert.Equal(t, -0.25, *gs.Genes[1].Coeff)
}

func TestIngestMalformedCoefficientCell(t *testing.T) {
	svc, repo := newIngestFixture()
	header := []string{"setName", "genes | logFC"}

	// 校验失败的批次不得留下任何部分写入，即使前面的行是合法的
	for _, rows := range [][][]string{
		{{"Ok", "TUBB2A | 1.5"}, {"Bad", "GAPDH"}},
		{{"Bad", "TUBB2A | abc"}},
	} {
		_, err := svc.Ingest(context.Background(), header, rows, testConstants, model.FormatNativeSymbol)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
		assert.Zero(t, repo.upserts)
	}
}

func TestIngestMetaColumns(t *testing.T) {
	svc, repo := newIngestFixture()

	_, err := svc.Ingest(context.Background(),
		[]string{"setName", "tissue", "genes"},
		[][]string{{"S1", "liver", "TUBB2A"}},
		testConstants, model.FormatNativeSymbol)
	require.NoError(t, err)

	gs := repo.docs[model.GenesetKey{SetName: "S1", Source: "Roche", User: "kanga6"}]
	require.NotNil(t, gs)
	assert.Equal(t, map[string]string{"tissue": "liver"}, gs.Meta)
}

func TestIngestRowMissingColumn(t *testing.T) {
	svc, repo := newIngestFixture()

	_, err := svc.Ingest(context.Background(),
		[]string{"setName", "desc", "genes"},
		[][]string{{"S1"}},
		testConstants, model.FormatNativeSymbol)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Zero(t, repo.upserts)
}

func TestIngestReportsUnresolvedGenes(t *testing.T) {
	svc, repo := newIngestFixture()

	diagnostics, err := svc.Ingest(context.Background(),
		[]string{"setName", "genes"},
		[][]string{
			{"TIROSH_MALIGNANT", "TUBB2A", "GAPDH"},
			{"Speiser_2016", "TUBB2A", "CEP1MK"},
		},
		testConstants, model.FormatNativeSymbol)
	require.NoError(t, err)
	assert.Equal(t, []string{"Error: CEP1MK (taxId  9606) is not valid."}, diagnostics)

	first := repo.docs[model.GenesetKey{SetName: "TIROSH_MALIGNANT", Source: "Roche", User: "kanga6"}]
	require.NotNil(t, first)
	assert.True(t, first.HasQC)

	// 未解析的基因保留原始 token，但基因集不通过 QC
	second := repo.docs[model.GenesetKey{SetName: "Speiser_2016", Source: "Roche", User: "kanga6"}]
	require.NotNil(t, second)
	assert.False(t, second.HasQC)
	assert.Equal(t, "CEP1MK", second.Genes[1].Gene.NativeSymbol)
	assert.Empty(t, second.Genes[1].Gene.NativeID)
}

func TestIngestIdempotent(t *testing.T) {
	svc, repo := newIngestFixture()
	header := []string{"setName", "genes"}
	rows := [][]string{{"S1", "TUBB2A"}}

	for i := 0; i < 2; i++ {
		diagnostics, err := svc.Ingest(context.Background(), header, rows, testConstants, model.FormatNativeSymbol)
		require.NoError(t, err)
		assert.Empty(t, diagnostics)
	}
	// 同键重复摄入是全量替换，语料库中始终只有一份
	assert.Len(t, repo.docs, 1)
	assert.Equal(t, 2, repo.upserts)
}

func TestIngestFromParams(t *testing.T) {
	svc, repo := newIngestFixture()
	header := []string{"setName", "genes"}
	rows := [][]string{{"S1", "TUBB2A"}}

	// 缺少任一必需参数整批拒绝
	for _, missing := range []string{"gf", "so", "ti", "us"} {
		params := map[string]interface{}{"gf": float64(0), "so": "Roche", "ti": float64(9606), "us": "kanga6"}
		delete(params, missing)
		_, err := svc.IngestFromParams(context.Background(), header, rows, params)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "missing=%s", missing)
	}

	// JSON 数字以 float64 解码，st/do 可选
	diagnostics, err := svc.IngestFromParams(context.Background(), header, rows, map[string]interface{}{
		"gf": float64(0), "so": "Roche", "ti": float64(9606), "us": "kanga6", "do": "pathway",
	})
	require.NoError(t, err)
	assert.Empty(t, diagnostics)

	gs := repo.docs[model.GenesetKey{SetName: "S1", Source: "Roche", User: "kanga6"}]
	require.NotNil(t, gs)
	assert.Equal(t, "pathway", gs.Domain)
	assert.Equal(t, 9606, gs.TaxID)
}
