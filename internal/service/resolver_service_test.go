package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gems-go/internal/apperr"
	"gems-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGeneRepo 是 GeneRepository 的内存实现，供解析与摄入测试共用。
type fakeGeneRepo struct {
	records []model.GeneRecord
	groups  []model.HomologyGroup
	cache   map[string]model.GeneIdentityVector

	homologCalls  int
	rebuiltGenes  []model.GeneRecord
	rebuiltGroups []model.HomologyGroup
}

func newFakeGeneRepo(records []model.GeneRecord, groups []model.HomologyGroup) *fakeGeneRepo {
	return &fakeGeneRepo{
		records: records,
		groups:  groups,
		cache:   make(map[string]model.GeneIdentityVector),
	}
}

func (f *fakeGeneRepo) FindByGeneID(_ context.Context, geneID int) (*model.GeneRecord, error) {
	for i := range f.records {
		if f.records[i].GeneID == geneID {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeGeneRepo) FindByOfficialSymbol(_ context.Context, symbol string, taxID int) (*model.GeneRecord, error) {
	for i := range f.records {
		if f.records[i].SymbolOfficial == symbol && f.records[i].TaxID == taxID {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeGeneRepo) FindByDisplaySymbol(_ context.Context, symbol string, taxID int) (*model.GeneRecord, error) {
	for i := range f.records {
		if f.records[i].Symbol == symbol && f.records[i].TaxID == taxID {
			return &f.records[i], nil
		}
	}
	return nil, nil
}

func (f *fakeGeneRepo) FindBySynonym(_ context.Context, symbol string, taxID int) ([]model.GeneRecord, error) {
	var matches []model.GeneRecord
	for _, rec := range f.records {
		if rec.TaxID != taxID {
			continue
		}
		for _, syn := range rec.Synonyms {
			if syn == symbol {
				matches = append(matches, rec)
				break
			}
		}
	}
	return matches, nil
}

func (f *fakeGeneRepo) MapHomolog(_ context.Context, geneID, targetTaxID int) ([]int, error) {
	f.homologCalls++
	var ids []int
	for _, group := range f.groups {
		contains := false
		for _, member := range group.Members {
			if member.GeneID == geneID {
				contains = true
				break
			}
		}
		if !contains {
			continue
		}
		for _, member := range group.Members {
			if member.TaxID == targetTaxID {
				ids = append(ids, member.GeneID)
			}
		}
	}
	return ids, nil
}

func (f *fakeGeneRepo) cacheKey(format model.GeneFormat, taxID int, token string) string {
	return fmt.Sprintf("%d:%d:%s", format, taxID, token)
}

func (f *fakeGeneRepo) GetCachedVector(_ context.Context, format model.GeneFormat, taxID int, token string) (*model.GeneIdentityVector, error) {
	vec, ok := f.cache[f.cacheKey(format, taxID, token)]
	if !ok {
		return nil, nil
	}
	return &vec, nil
}

func (f *fakeGeneRepo) SetCachedVector(_ context.Context, format model.GeneFormat, taxID int, token string, vec model.GeneIdentityVector) error {
	f.cache[f.cacheKey(format, taxID, token)] = vec
	return nil
}

func (f *fakeGeneRepo) RebuildReference(_ context.Context, genes []model.GeneRecord, groups []model.HomologyGroup) error {
	f.rebuiltGenes = genes
	f.rebuiltGroups = groups
	return nil
}

// resolverFixture 构造一份小型参考数据：大鼠 Tubb2a 与人 TUBB2A 同源，
// 外加一对同义词冲突的人类基因。
func resolverFixture() *fakeGeneRepo {
	records := []model.GeneRecord{
		{GeneID: 7280, TaxID: 9606, Symbol: "TUBB2A", SymbolOfficial: "TUBB2A", Synonyms: []string{"TUBB2", "dJ40E16.1"}},
		{GeneID: 498736, TaxID: 10116, Symbol: "Tubb2a", SymbolOfficial: "Tubb2a"},
		{GeneID: 2597, TaxID: 9606, Symbol: "GAPDH", SymbolOfficial: "GAPDH"},
		{GeneID: 111, TaxID: 9606, Symbol: "DUPA", Synonyms: []string{"MYSYN"}},
		{GeneID: 222, TaxID: 9606, Symbol: "DUPB", Synonyms: []string{"MYSYN"}},
	}
	groups := []model.HomologyGroup{
		{GroupID: 1, Members: []model.HomologyMember{
			{TaxID: 9606, GeneID: 7280},
			{TaxID: 10116, GeneID: 498736},
		}},
	}
	return newFakeGeneRepo(records, groups)
}

func TestResolveFourFormatConsistency(t *testing.T) {
	repo := resolverFixture()
	resolver := NewResolverService(repo, 9606)
	ctx := context.Background()

	want := model.GeneIdentityVector{
		NativeSymbol:    "Tubb2a",
		NativeID:        "498736",
		HumanizedSymbol: "TUBB2A",
		HumanizedID:     "7280",
	}

	cases := []struct {
		token  string
		format model.GeneFormat
	}{
		{"Tubb2a", model.FormatNativeSymbol},
		{"498736", model.FormatNativeID},
		{"TUBB2A", model.FormatHumanizedSymbol},
		{"7280", model.FormatHumanizedID},
	}
	for _, tc := range cases {
		d := &Diagnostics{}
		vec, err := resolver.Resolve(ctx, tc.token, 10116, tc.format, d)
		require.NoError(t, err, "token=%s format=%d", tc.token, tc.format)
		assert.Equal(t, want, vec, "token=%s format=%d", tc.token, tc.format)
		assert.True(t, d.Empty())
	}
}

func TestResolveHumanPassthrough(t *testing.T) {
	repo := resolverFixture()
	resolver := NewResolverService(repo, 9606)

	d := &Diagnostics{}
	vec, err := resolver.Resolve(context.Background(), "TUBB2A", 9606, model.FormatNativeSymbol, d)
	require.NoError(t, err)
	assert.Equal(t, model.GeneIdentityVector{
		NativeSymbol:    "TUBB2A",
		NativeID:        "7280",
		HumanizedSymbol: "TUBB2A",
		HumanizedID:     "7280",
	}, vec)
	// 参考物种直通不经过同源表
	assert.Zero(t, repo.homologCalls)
}

func TestResolveAmbiguousSynonym(t *testing.T) {
	repo := resolverFixture()
	resolver := NewResolverService(repo, 9606)

	d := &Diagnostics{}
	vec, err := resolver.Resolve(context.Background(), "MYSYN", 9606, model.FormatNativeSymbol, d)
	require.NoError(t, err)
	assert.Empty(t, vec.NativeID)
	assert.Equal(t, []string{"Error: MYSYN (taxId  9606) is not valid."}, d.Messages())
}

func TestResolveUnknownSymbolDiagnostic(t *testing.T) {
	resolver := NewResolverService(resolverFixture(), 9606)

	d := &Diagnostics{}
	vec, err := resolver.Resolve(context.Background(), "Nope1", 10116, model.FormatNativeSymbol, d)
	require.NoError(t, err)
	assert.Equal(t, model.GeneIdentityVector{NativeSymbol: "Nope1"}, vec)
	assert.Equal(t, []string{"Error: Nope1 (taxId  10116) is not valid."}, d.Messages())
}

func TestResolveBadGeneID(t *testing.T) {
	resolver := NewResolverService(resolverFixture(), 9606)

	d := &Diagnostics{}
	vec, err := resolver.Resolve(context.Background(), "abc", 9606, model.FormatNativeID, d)
	require.NoError(t, err)
	assert.Equal(t, "abc", vec.NativeID)
	assert.Empty(t, vec.NativeSymbol)
	assert.Equal(t, []string{"Error: Gene ID - abc is not valid."}, d.Messages())
}

func TestResolveCachesCompleteVectors(t *testing.T) {
	repo := resolverFixture()
	resolver := NewResolverService(repo, 9606)
	ctx := context.Background()

	d := &Diagnostics{}
	want, err := resolver.Resolve(ctx, "Tubb2a", 10116, model.FormatNativeSymbol, d)
	require.NoError(t, err)
	require.True(t, want.Complete())
	require.Len(t, repo.cache, 1)

	// 清空参考表后仍能从缓存命中
	repo.records = nil
	repo.groups = nil
	got, err := resolver.Resolve(ctx, "Tubb2a", 10116, model.FormatNativeSymbol, &Diagnostics{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveDoesNotCacheIncomplete(t *testing.T) {
	repo := resolverFixture()
	resolver := NewResolverService(repo, 9606)

	_, err := resolver.Resolve(context.Background(), "Nope1", 10116, model.FormatNativeSymbol, &Diagnostics{})
	require.NoError(t, err)
	assert.Empty(t, repo.cache)
}

func TestResolveUnsupportedFormat(t *testing.T) {
	resolver := NewResolverService(resolverFixture(), 9606)

	_, err := resolver.Resolve(context.Background(), "TUBB2A", 9606, model.GeneFormat(9), &Diagnostics{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
