package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gems-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const geneInfoFixture = "#tax_id\tGeneID\tSymbol\tLocusTag\tSynonyms\tdbXrefs\tchromosome\tmap_location\tdescription\ttype_of_gene\tSymbol_from_nomenclature_authority\n" +
	"9606\t7280\tTUBB2A\t-\tTUBB2|dJ40E16.1\t-\t6\t-\ttubulin beta 2a\tprotein-coding\tTUBB2A\n" +
	"10116\t498736\tTubb2a\t-\t-\t-\t17\t-\ttubulin beta 2a\tprotein-coding\t-\n" +
	"notanumber\t1\tX\tY\tZ\n"

const homologeneFixture = "1\t9606\t7280\n" +
	"1\t10116\t498736\n" +
	"2\t9606\t2597\n"

func TestReferenceRebuild(t *testing.T) {
	geneInfoPath := writeFixture(t, "gene_info", geneInfoFixture)
	homologenePath := writeFixture(t, "homologene.data", homologeneFixture)

	repo := newFakeGeneRepo(nil, nil)
	svc := NewReferenceService(repo)

	geneCount, groupCount, err := svc.Rebuild(context.Background(), geneInfoPath, homologenePath)
	require.NoError(t, err)
	assert.Equal(t, 2, geneCount)
	assert.Equal(t, 2, groupCount)

	require.Len(t, repo.rebuiltGenes, 2)
	assert.Equal(t, model.GeneRecord{
		GeneID:         7280,
		TaxID:          9606,
		Symbol:         "TUBB2A",
		SymbolOfficial: "TUBB2A",
		Synonyms:       []string{"TUBB2", "dJ40E16.1"},
	}, repo.rebuiltGenes[0])
	// '-' 哨兵表示无同义词、无官方符号
	assert.Empty(t, repo.rebuiltGenes[1].Synonyms)
	assert.Empty(t, repo.rebuiltGenes[1].SymbolOfficial)

	require.Len(t, repo.rebuiltGroups, 2)
	assert.Equal(t, model.HomologyGroup{GroupID: 1, Members: []model.HomologyMember{
		{TaxID: 9606, GeneID: 7280},
		{TaxID: 10116, GeneID: 498736},
	}}, repo.rebuiltGroups[0])
	assert.Equal(t, 2, repo.rebuiltGroups[1].GroupID)
}

func TestReferenceRebuildMissingFiles(t *testing.T) {
	repo := newFakeGeneRepo(nil, nil)
	svc := NewReferenceService(repo)

	_, _, err := svc.Rebuild(context.Background(), "/nonexistent/gene_info", "/nonexistent/homologene.data")
	assert.Error(t, err)
	assert.Empty(t, repo.rebuiltGenes)
}
