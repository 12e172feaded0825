package service

import (
	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
	"github.com/smallbiznis/loyara/internal/facts/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		log: p.Log.Named("facts.service"),
	}
}

// Assemble inner-joins line items to headers, then left-joins product and
// promotion attributes. One output row per surviving line item, no
// aggregation. The cleaner already dropped orphans, so the header miss path
// is defensive only.
func (s *Service) Assemble(snapshot catalogdomain.Snapshot) []domain.FactSalesRow {
	headersByID := make(map[string]catalogdomain.SalesHeader, len(snapshot.Headers))
	for _, h := range snapshot.Headers {
		headersByID[h.TransactionID] = h
	}
	productsByID := make(map[string]catalogdomain.Product, len(snapshot.Products))
	for _, p := range snapshot.Products {
		productsByID[p.ID] = p
	}
	promotionsByID := make(map[string]catalogdomain.Promotion, len(snapshot.Promotions))
	for _, p := range snapshot.Promotions {
		promotionsByID[p.ID] = p
	}

	rows := make([]domain.FactSalesRow, 0, len(snapshot.LineItems))
	unmatched := 0
	for _, item := range snapshot.LineItems {
		header, ok := headersByID[item.TransactionID]
		if !ok {
			unmatched++
			continue
		}

		row := domain.FactSalesRow{
			LineItemID:      item.LineItemID,
			TransactionID:   item.TransactionID,
			CustomerID:      header.CustomerID,
			ProductID:       item.ProductID,
			PromotionID:     item.PromotionID,
			StoreID:         header.StoreID,
			Quantity:        item.Quantity,
			TotalAmount:     header.TotalAmount,
			LineItemAmount:  item.LineItemAmount,
			TransactionDate: header.TransactionDate,
			CustomerPhone:   header.CustomerPhone,
		}

		if product, ok := productsByID[item.ProductID]; ok {
			row.ProductName = product.Name
			row.ProductCategory = product.Category
			row.UnitPrice = product.UnitPrice
			row.CurrentStock = product.CurrentStock
		}

		if promotion, ok := promotionsByID[item.PromotionID]; ok {
			row.PromotionRuleName = &promotion.RuleName
			row.DiscountPercent = promotion.DiscountPercent
			row.ApplicableCategory = &promotion.ApplicableCategory
			row.PromotionStartDate = promotion.StartDate
			row.PromotionEndDate = promotion.EndDate
		}

		rows = append(rows, row)
	}

	if unmatched > 0 {
		s.log.Warn("line items without matching header excluded from facts",
			zap.Int("count", unmatched),
		)
	}

	return rows
}
