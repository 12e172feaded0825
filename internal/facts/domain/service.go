package domain

import (
	catalogdomain "github.com/smallbiznis/loyara/internal/catalog/domain"
)

// Service assembles the denormalized sales fact rows from a cleaned
// snapshot. Pure computation, no persistence.
type Service interface {
	Assemble(snapshot catalogdomain.Snapshot) []FactSalesRow
}
