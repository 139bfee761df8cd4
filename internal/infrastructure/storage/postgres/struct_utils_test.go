package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"costbook/internal/core/entity"
)

func TestExtractDBColumns_Movement(t *testing.T) {
	cols := ExtractDBColumns[entity.InventoryMovement]()

	expected := []string{
		"id", "company_id", "account_id",
		"entry_line_id", "journal_entry_id",
		"sequence", "movement_date", "movement_type",
		"quantity", "unit_price", "amount",
		"balance_quantity", "balance_amount", "average_cost",
		"created_at",
	}
	assert.Equal(t, expected, cols)
}

func TestExtractDBColumns_SkipsUntaggedFields(t *testing.T) {
	type row struct {
		ID      string `db:"id"`
		Ignored string `db:"-"`
		NoTag   string
		Name    string `db:"name"`
	}

	assert.Equal(t, []string{"id", "name"}, ExtractDBColumns[row]())
}

func TestExtractDBColumns_FlattensEmbedded(t *testing.T) {
	type base struct {
		ID        string `db:"id"`
		CreatedAt string `db:"created_at"`
	}
	type row struct {
		base
		Code string `db:"code"`
	}

	assert.Equal(t, []string{"id", "created_at", "code"}, ExtractDBColumns[row]())
}
