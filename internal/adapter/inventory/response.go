package inventory

import "github.com/heartmarshall/inventory-audit-backend/internal/domain"

// apiItem is the inventory backend representation of an item.
type apiItem struct {
	ID            int64  `json:"id"`
	Barcode       string `json:"barcode"`
	Name          string `json:"name"`
	LocationID    int64  `json:"location_id"`
	ResponsibleID *int64 `json:"responsible_id"`
	DepartmentID  *int64 `json:"department_id"`
}

func (a apiItem) toDomain() domain.InventoryItem {
	return domain.InventoryItem{
		ID:            a.ID,
		Barcode:       a.Barcode,
		Name:          a.Name,
		LocationID:    a.LocationID,
		ResponsibleID: a.ResponsibleID,
		DepartmentID:  a.DepartmentID,
	}
}

type moveRequest struct {
	ToLocationID int64 `json:"to_location_id"`
}

// responsibleRequest clears the responsible person when UserID is null.
type responsibleRequest struct {
	UserID *int64 `json:"user_id"`
}

type apiError struct {
	Message string `json:"message"`
}
