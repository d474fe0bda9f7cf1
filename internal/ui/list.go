package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/pricepal/internal/formatter"
	"github.com/desertthunder/pricepal/internal/models"
)

var _ list.Item = productItem{}

// productItem wraps [models.TrackedProduct] to implement [list.Item].
type productItem struct {
	product models.TrackedProduct
}

func (i productItem) FilterValue() string { return i.product.ProductName }
func (i productItem) Title() string       { return i.product.ProductName }
func (i productItem) Description() string {
	desc := fmt.Sprintf("%s • target %s • %s",
		formatter.FormatINR(i.product.CurrentPrice),
		formatter.FormatINR(i.product.TargetPrice),
		formatter.Status(i.product),
	)
	if i.product.LowestPrice > 0 {
		desc = fmt.Sprintf("%s • lowest %s", desc, formatter.FormatINR(i.product.LowestPrice))
	}
	return desc
}

func productItems(summary *models.CartSummary) []list.Item {
	if summary == nil {
		return []list.Item{}
	}
	items := make([]list.Item, len(summary.Products))
	for i, p := range summary.Products {
		items[i] = productItem{product: p}
	}
	return items
}
