package nlq

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielChung520/AI-Box-sub013/internal/dict"
	"github.com/DanielChung520/AI-Box-sub013/internal/domain"
	"github.com/DanielChung520/AI-Box-sub013/internal/schema"
)

func testParser(t *testing.T) *Parser {
	t.Helper()
	r, err := schema.Load(filepath.Join("..", "..", "schemas"))
	require.NoError(t, err)
	sys, err := r.System("jp_tiptop_erp")
	require.NoError(t, err)
	return New(sys, dict.New())
}

func TestParse_NoMatchReturnsUnknown(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("xyz abc")
	assert.Equal(t, domain.IntentUnknown, parsed.Intent)
	assert.Equal(t, 0.0, parsed.Confidence)
	assert.Empty(t, parsed.Params)
	assert.True(t, parsed.IsUnknown())
}

func TestParse_EmptyText(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("   ")
	assert.True(t, parsed.IsUnknown())
}

func TestParse_InventoryQuery(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("查詢料號 RM01-005 的庫存")
	assert.Equal(t, "QUERY_INVENTORY", parsed.Intent)
	assert.Greater(t, parsed.Confidence, 0.0)
	assert.Equal(t, "RM01-005", parsed.Params["PART_NO"])
}

func TestParse_InventoryWithWarehouse(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("RM01-005 在 W03 的庫存")
	assert.Equal(t, "QUERY_INVENTORY", parsed.Intent)
	assert.Equal(t, "RM01-005", parsed.Params["PART_NO"])
	assert.Equal(t, "W03", parsed.Params["WAREHOUSE"])
}

func TestParse_WarehouseByMeaning(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("RM01-005 在成品倉的庫存")
	assert.Equal(t, "QUERY_INVENTORY", parsed.Intent)
	assert.Equal(t, "W03", parsed.Params["WAREHOUSE"])
}

func TestParse_TransactionQuery(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("FG12-1001 本月的入庫交易")
	assert.Equal(t, "QUERY_TRANSACTIONS", parsed.Intent)
	assert.Equal(t, "FG12-1001", parsed.Params["PART_NO"])
	assert.Equal(t, "RECEIPT", parsed.Params["TRANSACTION_TYPE"])
	assert.Equal(t, "THIS_MONTH", parsed.Params["TXN_DATE"])
}

func TestParse_TieBreaksByDeclarationOrder(t *testing.T) {
	p := testParser(t)

	// Only an item number, no intent-distinguishing keyword: both
	// intents bind their single required filter and score equally.
	// First-registered (QUERY_INVENTORY) wins.
	parsed := p.Parse("RM01-005")
	assert.Equal(t, "QUERY_INVENTORY", parsed.Intent)
	assert.Greater(t, parsed.Confidence, 0.0)
}

func TestParse_KeywordRaisesConfidence(t *testing.T) {
	p := testParser(t)

	bare := p.Parse("RM01-005")
	keyed := p.Parse("RM01-005 庫存")
	assert.Greater(t, keyed.Confidence, bare.Confidence)
}

func TestParse_EnglishVocabulary(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("stock for RM01-005 in W02")
	assert.Equal(t, "QUERY_INVENTORY", parsed.Intent)
	assert.Equal(t, "RM01-005", parsed.Params["PART_NO"])
	assert.Equal(t, "W02", parsed.Params["WAREHOUSE"])
}

func TestParse_Deterministic(t *testing.T) {
	p := testParser(t)

	first := p.Parse("RM01-005 在 W03 的庫存")
	second := p.Parse("RM01-005 在 W03 的庫存")
	assert.Equal(t, first, second)
}

func TestParse_CompetingVocabularyIsStable(t *testing.T) {
	p := testParser(t)

	first := p.Parse("RM01-005 本月入庫和出庫的異動")
	require.Equal(t, "QUERY_TRANSACTIONS", first.Intent)
	assert.Equal(t, "RECEIPT", first.Params["TRANSACTION_TYPE"])

	for i := 0; i < 50; i++ {
		again := p.Parse("RM01-005 本月入庫和出庫的異動")
		assert.Equal(t, first.Params, again.Params, "run %d", i)
	}
}

func TestParse_LaterMentionDoesNotWin(t *testing.T) {
	p := testParser(t)

	parsed := p.Parse("RM01-005 本月出庫和入庫的異動")
	require.Equal(t, "QUERY_TRANSACTIONS", parsed.Intent)
	assert.Equal(t, "ISSUE", parsed.Params["TRANSACTION_TYPE"])
}
